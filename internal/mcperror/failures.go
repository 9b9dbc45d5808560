// file: internal/mcperror/failures.go
package mcperror

import (
	"fmt"
	"strings"
)

// Failure is a raw, not-yet-normalized failure produced at a collaborator boundary.
// The set of implementations is closed by the unexported marker method, so Normalize
// matches on concrete types and never has to guess from shape.
type Failure interface {
	error
	failure()
}

// APIFailure is a structured error returned by the FreshBooks API.
type APIFailure struct {
	// StatusCode is the HTTP status of the response that carried the error.
	StatusCode int
	// Code is the upstream error code, e.g. "NOT_FOUND" or "RATE_LIMIT_EXCEEDED".
	Code    string
	Message string
	Field   string
	Errno   *int
	// RetryAfter is the upstream retry hint in seconds, when provided.
	RetryAfter *int
	Details    map[string]any
}

func (*APIFailure) failure() {}

func (f *APIFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "freshbooks api error %s", f.Code)
	if f.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", f.StatusCode)
	}
	if f.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Message)
	}
	if f.Field != "" {
		fmt.Fprintf(&sb, " [field %s]", f.Field)
	}
	return sb.String()
}

// ValidationFailure is an input-validation failure listing every issue found.
type ValidationFailure struct {
	Issues []ValidationIssue
}

func (*ValidationFailure) failure() {}

func (f *ValidationFailure) Error() string {
	if len(f.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(f.Issues))
	for _, issue := range f.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", displayPath(issue.Path), issue.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OAuthFailure is an error from the OAuth token endpoint or from missing credentials.
type OAuthFailure struct {
	// Code is the OAuth error code, e.g. "invalid_grant".
	Code    string
	Message string
}

func (*OAuthFailure) failure() {}

func (f *OAuthFailure) Error() string {
	if f.Message == "" {
		return "oauth error " + f.Code
	}
	return fmt.Sprintf("oauth error %s: %s", f.Code, f.Message)
}

// NetworkFailure is a transport-level failure: the request never produced a response.
type NetworkFailure struct {
	// Op names the operation that failed, e.g. "GET /timetracking/...".
	Op  string
	Err error
}

func (*NetworkFailure) failure() {}

func (f *NetworkFailure) Error() string {
	msg := "network failure"
	if f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Op == "" {
		return msg
	}
	return f.Op + ": " + msg
}

// Unwrap exposes the underlying transport error.
func (f *NetworkFailure) Unwrap() error {
	return f.Err
}

// HTTPStatusFailure is an error response that carried no structured body.
type HTTPStatusFailure struct {
	Status     int
	StatusText string
	// RetryAfter is the Retry-After header in seconds, when present.
	RetryAfter *int
}

func (*HTTPStatusFailure) failure() {}

func (f *HTTPStatusFailure) Error() string {
	if f.StatusText == "" {
		return fmt.Sprintf("http status %d", f.Status)
	}
	return fmt.Sprintf("http status %d: %s", f.Status, f.StatusText)
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
