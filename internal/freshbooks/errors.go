// file: internal/freshbooks/errors.go
package freshbooks

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// errnoNotFound is the accounting API errno for a missing entity.
const errnoNotFound = 1012

type accountingError struct {
	Errno   int    `json:"errno"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Object  string `json:"object"`
	Value   string `json:"value"`
}

type accountingErrorBody struct {
	Response struct {
		Errors []accountingError `json:"errors"`
	} `json:"response"`
}

type timeTrackingErrorBody struct {
	Error   json.RawMessage `json:"error"`
	Errno   *int            `json:"errno"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
}

// errorFromResponse converts a non-2xx response into an *APIFailure when the body carries
// a FreshBooks error, and into an *HTTPStatusFailure otherwise.
func errorFromResponse(resp *http.Response, body []byte) error {
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())

	var acct accountingErrorBody
	if err := json.Unmarshal(body, &acct); err == nil && len(acct.Response.Errors) > 0 {
		first := acct.Response.Errors[0]
		errno := first.Errno
		failure := &mcperror.APIFailure{
			StatusCode: resp.StatusCode,
			Code:       upstreamCode(resp.StatusCode, &errno),
			Message:    first.Message,
			Field:      first.Field,
			Errno:      &errno,
			RetryAfter: retryAfter,
		}
		details := map[string]any{}
		if first.Object != "" {
			details["object"] = first.Object
		}
		if first.Value != "" {
			details["value"] = first.Value
		}
		if n := len(acct.Response.Errors); n > 1 {
			details["additionalErrors"] = n - 1
		}
		if len(details) > 0 {
			failure.Details = details
		}
		return failure
	}

	var tt timeTrackingErrorBody
	if err := json.Unmarshal(body, &tt); err == nil && (len(tt.Error) > 0 || tt.Message != "") {
		msg, field := timeTrackingMessage(tt)
		return &mcperror.APIFailure{
			StatusCode: resp.StatusCode,
			Code:       upstreamCode(resp.StatusCode, tt.Errno),
			Message:    msg,
			Field:      field,
			Errno:      tt.Errno,
			RetryAfter: retryAfter,
		}
	}

	return &mcperror.HTTPStatusFailure{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		RetryAfter: retryAfter,
	}
}

// timeTrackingMessage reads {"error": "text"} or {"error": {"field": "text"}}.
func timeTrackingMessage(tt timeTrackingErrorBody) (string, string) {
	var text string
	if err := json.Unmarshal(tt.Error, &text); err == nil && text != "" {
		return text, tt.Field
	}
	var byField map[string]any
	if err := json.Unmarshal(tt.Error, &byField); err == nil && len(byField) > 0 {
		fields := make([]string, 0, len(byField))
		for f := range byField {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		first := fields[0]
		return stringify(byField[first]), first
	}
	return tt.Message, tt.Field
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, stringify(p))
		}
		return strings.Join(parts, "; ")
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// upstreamCode derives the FreshBooks error code from the HTTP status and errno.
func upstreamCode(status int, errno *int) string {
	if errno != nil && *errno == errnoNotFound {
		return "NOT_FOUND"
	}
	switch status {
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return "SERVICE_UNAVAILABLE"
	case http.StatusInternalServerError:
		return "INTERNAL_ERROR"
	default:
		return "HTTP_" + strconv.Itoa(status)
	}
}

// parseRetryAfter reads a Retry-After header given either as delay-seconds or as an
// HTTP date. It returns nil when the header is absent or unparseable.
func parseRetryAfter(value string, now time.Time) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return &secs
	}
	if t, err := http.ParseTime(value); err == nil {
		secs := int(t.Sub(now).Round(time.Second) / time.Second)
		if secs < 0 {
			secs = 0
		}
		return &secs
	}
	return nil
}
