// file: internal/mcperror/formatter.go
package mcperror

import (
	"fmt"
	"strings"
	"time"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
)

// Formatter renders a normalized error for the wire, for the agent, and for logs.
// It never modifies the error it is given.
type Formatter struct {
	// Production strips stack traces from wire and debug output.
	Production bool

	now func() time.Time
}

// NewFormatter returns a Formatter for the given environment.
func NewFormatter(production bool) *Formatter {
	return &Formatter{Production: production, now: time.Now}
}

func (f *Formatter) timestamp() time.Time {
	if f.now == nil {
		return time.Now().UTC()
	}
	return f.now().UTC()
}

// Response is a JSON-RPC 2.0 error response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Error   *Error `json:"error"`
}

// Response wraps e in a JSON-RPC error response. When id is nil the error's request id
// is used, and when that is absent too the id is null.
func (f *Formatter) Response(id any, e *Error) Response {
	if id == nil && e.Data.Context != nil && e.Data.Context.RequestID != "" {
		id = e.Data.Context.RequestID
	}
	out := e.clone()
	if f.Production {
		stripStack(out)
	}
	return Response{JSONRPC: "2.0", ID: id, Error: out}
}

func stripStack(e *Error) {
	if e.Data.Original == nil || e.Data.Original.Details == nil {
		return
	}
	delete(e.Data.Original.Details, "stack")
	if len(e.Data.Original.Details) == 0 {
		e.Data.Original.Details = nil
	}
}

// Markdown renders e for the agent. The text always ends with an explicit statement of
// whether the error is recoverable, followed by a tool/request footer.
func (f *Formatter) Markdown(e *Error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Error: %s\n\n", e.Message)
	fmt.Fprintf(&sb, "Code: %s (%d)\n", e.Code, int(e.Code))
	fmt.Fprintf(&sb, "Suggestion: %s\n", e.Data.Suggestion)
	if field := e.Field(); field != "" {
		fmt.Fprintf(&sb, "Field: %s\n", field)
	}

	if len(e.Data.ValidationErrors) > 0 {
		sb.WriteString("\nValidation Errors:\n")
		for _, issue := range e.Data.ValidationErrors {
			fmt.Fprintf(&sb, "- `%s`: %s", displayPath(issue.Path), issue.Message)
			if issue.Expected != "" || issue.Received != "" {
				fmt.Fprintf(&sb, " (expected %s, received %s)", orUnknown(issue.Expected), orUnknown(issue.Received))
			}
			sb.WriteString("\n")
		}
	}

	if e.Data.RetryAfterSeconds != nil {
		fmt.Fprintf(&sb, "\nRetry After: %d seconds\n", *e.Data.RetryAfterSeconds)
	}

	if e.Data.Recoverable {
		sb.WriteString("\nThis error is recoverable: retrying or following the suggestion may succeed.\n")
	} else {
		sb.WriteString("\nThis error is not recoverable: repeating the same request will fail until the underlying data or permissions change.\n")
	}

	ctx := e.Context()
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "Tool: %s | Request ID: %s\n", orUnknown(ctx.Tool), orUnknown(ctx.RequestID))
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// LogEntry is the flat, redacted log form of a normalized error.
// It deliberately has no token or credential fields.
type LogEntry struct {
	Level        string    `json:"level"`
	Code         int       `json:"code"`
	Name         string    `json:"name"`
	Message      string    `json:"message"`
	Tool         string    `json:"tool,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	Recoverable  bool      `json:"recoverable"`
	AccountID    string    `json:"accountId,omitempty"`
	UpstreamCode string    `json:"upstreamCode,omitempty"`
	Errno        *int      `json:"errno,omitempty"`
	Field        string    `json:"field,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// LogEntry builds the redacted log record for e.
func (f *Formatter) LogEntry(e *Error) LogEntry {
	ctx := e.Context()
	entry := LogEntry{
		Level:       "warn",
		Code:        int(e.Code),
		Name:        e.Code.String(),
		Message:     e.Message,
		Tool:        ctx.Tool,
		RequestID:   ctx.RequestID,
		Recoverable: e.Data.Recoverable,
		Timestamp:   f.timestamp(),
	}
	if e.Code == CodeInternalError {
		entry.Level = "error"
	}
	if ctx.AccountID != "" {
		entry.AccountID = MaskAccountID(ctx.AccountID)
	}
	if orig := e.Data.Original; orig != nil {
		entry.UpstreamCode = orig.Code
		entry.Field = orig.Field
		if orig.Errno != nil {
			errno := *orig.Errno
			entry.Errno = &errno
		}
	}
	return entry
}

// Attrs returns the entry as alternating key/value pairs for a logging.Logger.
func (l LogEntry) Attrs() []any {
	attrs := []any{
		"code", l.Code,
		"name", l.Name,
		"recoverable", l.Recoverable,
		"timestamp", l.Timestamp.Format(time.RFC3339Nano),
	}
	if l.Tool != "" {
		attrs = append(attrs, "tool", l.Tool)
	}
	if l.RequestID != "" {
		attrs = append(attrs, "requestId", l.RequestID)
	}
	if l.AccountID != "" {
		attrs = append(attrs, "accountId", l.AccountID)
	}
	if l.UpstreamCode != "" {
		attrs = append(attrs, "upstreamCode", l.UpstreamCode)
	}
	if l.Errno != nil {
		attrs = append(attrs, "errno", *l.Errno)
	}
	if l.Field != "" {
		attrs = append(attrs, "field", l.Field)
	}
	return attrs
}

// Log writes the redacted record for e to logger at the entry's level.
func (f *Formatter) Log(logger logging.Logger, e *Error) {
	entry := f.LogEntry(e)
	if entry.Level == "error" {
		logger.Error(entry.Message, entry.Attrs()...)
		return
	}
	logger.Warn(entry.Message, entry.Attrs()...)
}

// Debug returns a diagnostic view of e. In production it is cut down to code, message,
// recoverable and suggestion.
func (f *Formatter) Debug(e *Error) map[string]any {
	view := map[string]any{
		"code":        int(e.Code),
		"message":     e.Message,
		"recoverable": e.Data.Recoverable,
		"suggestion":  e.Data.Suggestion,
	}
	if f.Production {
		return view
	}
	view["name"] = e.Code.String()
	if e.Data.Original != nil {
		orig := e.clone().Data.Original
		view["freshbooksError"] = orig
	}
	if e.Data.Context != nil {
		view["context"] = e.Context()
	}
	if e.Data.RetryAfterSeconds != nil {
		view["retryAfter"] = *e.Data.RetryAfterSeconds
	}
	if len(e.Data.ValidationErrors) > 0 {
		view["validationErrors"] = append([]ValidationIssue(nil), e.Data.ValidationErrors...)
	}
	return view
}

// MaskAccountID keeps the first and last three characters of id.
// Ids of six characters or fewer are masked entirely.
func MaskAccountID(id string) string {
	r := []rune(id)
	if len(r) <= 6 {
		return "***"
	}
	return string(r[:3]) + "..." + string(r[len(r)-3:])
}
