// file: internal/schema/helpers.go
package schema

import (
	"bytes"
)

const maxPreviewLen = 100

// calculatePreview returns a printable, truncated copy of data for debug logs.
func calculatePreview(data []byte) string {
	suffix := ""
	if len(data) > maxPreviewLen {
		data = data[:maxPreviewLen]
		suffix = "..."
	}
	previewBytes := bytes.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '.'
		}
		return r
	}, data)
	return string(previewBytes) + suffix
}
