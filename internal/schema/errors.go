// file: internal/schema/errors.go
package schema

import (
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

var (
	missingPropsPattern = regexp.MustCompile(`^missing propert(?:y|ies):\s*(.+)$`)
	expectedGotPattern  = regexp.MustCompile(`^expected (.+), but got (.+)$`)
)

// issuesFrom flattens a validation error tree into one issue per leaf violation,
// sorted by path. A missing-properties violation yields one issue per property.
func issuesFrom(valErr *jsonschema.ValidationError) []mcperror.ValidationIssue {
	var issues []mcperror.ValidationIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) > 0 {
			for _, cause := range ve.Causes {
				walk(cause)
			}
			return
		}
		issues = append(issues, leafIssues(ve)...)
	}
	walk(valErr)

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Path < issues[j].Path
	})
	return issues
}

func leafIssues(ve *jsonschema.ValidationError) []mcperror.ValidationIssue {
	path := pointerToPath(ve.InstanceLocation)
	keyword := keywordOf(ve.KeywordLocation)

	if m := missingPropsPattern.FindStringSubmatch(ve.Message); m != nil {
		var out []mcperror.ValidationIssue
		for _, name := range strings.Split(m[1], ",") {
			name = strings.Trim(strings.TrimSpace(name), `'"`)
			if name == "" {
				continue
			}
			out = append(out, mcperror.ValidationIssue{
				Path:    joinPath(path, name),
				Message: "is required",
				Code:    "required",
			})
		}
		return out
	}

	issue := mcperror.ValidationIssue{Path: path, Message: ve.Message, Code: keyword}
	if m := expectedGotPattern.FindStringSubmatch(ve.Message); m != nil {
		issue.Expected = m[1]
		issue.Received = m[2]
	}
	return []mcperror.ValidationIssue{issue}
}

// pointerToPath turns a JSON pointer such as "/entries/0/hours" into "entries.0.hours".
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "#")
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// keywordOf returns the last segment of a keyword location, e.g. "minimum".
func keywordOf(location string) string {
	location = strings.TrimRight(location, "/")
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}
