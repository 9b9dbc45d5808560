// file: internal/mcperror/mapper.go
package mcperror

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// The functions in this file are pure: they build an *Error from one raw failure
// shape and do nothing else. Logging belongs to callers.

type apiMapping struct {
	code        Code
	recoverable bool
}

// apiCodeTable maps FreshBooks error codes to taxonomy codes.
var apiCodeTable = map[string]apiMapping{
	"UNAUTHORIZED":             {CodeNotAuthenticated, true},
	"UNAUTHENTICATED":          {CodeNotAuthenticated, true},
	"TOKEN_EXPIRED":            {CodeTokenExpired, true},
	"INVALID_GRANT":            {CodeTokenExpired, true},
	"FORBIDDEN":                {CodePermissionDenied, false},
	"INSUFFICIENT_PERMISSIONS": {CodePermissionDenied, false},
	"NOT_FOUND":                {CodeResourceNotFound, false},
	"VALIDATION_ERROR":         {CodeValidationError, true},
	"BAD_REQUEST":              {CodeValidationError, true},
	"RATE_LIMIT_EXCEEDED":      {CodeRateLimited, true},
	"CONFLICT":                 {CodeConflict, false},
	"INTERNAL_ERROR":           {CodeInternalError, true},
	"SERVICE_UNAVAILABLE":      {CodeServiceUnavailable, true},
}

var defaultAPIMapping = apiMapping{CodeInternalError, true}

var apiMessagePrefix = map[Code]string{
	CodeNotAuthenticated:   "Authentication required",
	CodeTokenExpired:       "Access token expired",
	CodePermissionDenied:   "Permission denied",
	CodeResourceNotFound:   "Resource not found",
	CodeValidationError:    "Validation failed",
	CodeRateLimited:        "Rate limit exceeded",
	CodeConflict:           "Conflict",
	CodeInternalError:      "FreshBooks error",
	CodeServiceUnavailable: "FreshBooks service unavailable",
}

// FromAPIFailure maps a structured FreshBooks error.
func FromAPIFailure(f *APIFailure) *Error {
	m, known := apiCodeTable[strings.ToUpper(strings.TrimSpace(f.Code))]
	if !known {
		m = defaultAPIMapping
	}

	e := &Error{
		Code:    m.code,
		Message: apiMessage(m.code, known, f),
		Data: Data{
			Original:    originalFromAPI(f),
			Recoverable: m.recoverable,
			Suggestion:  m.code.SuggestionFor(f.Field),
		},
		cause: f,
	}
	if m.code == CodeRateLimited && f.RetryAfter != nil {
		seconds := *f.RetryAfter
		e.Data.RetryAfterSeconds = &seconds
	}
	return e
}

func apiMessage(code Code, known bool, f *APIFailure) string {
	prefix := apiMessagePrefix[code]
	if !known {
		prefix = fmt.Sprintf("FreshBooks error (%s)", f.Code)
	}
	switch {
	case code == CodeResourceNotFound && f.Field != "":
		if f.Message == "" {
			return fmt.Sprintf("%s: no match for %q", prefix, f.Field)
		}
		return fmt.Sprintf("%s: no match for %q (%s)", prefix, f.Field, f.Message)
	case code == CodeValidationError && f.Field != "":
		if f.Message == "" {
			return fmt.Sprintf("%s for %q", prefix, f.Field)
		}
		return fmt.Sprintf("%s for %q: %s", prefix, f.Field, f.Message)
	case f.Message == "":
		return prefix
	default:
		return prefix + ": " + f.Message
	}
}

func originalFromAPI(f *APIFailure) *Original {
	orig := &Original{
		Code:    f.Code,
		Message: f.Message,
		Field:   f.Field,
	}
	if f.Errno != nil {
		errno := *f.Errno
		orig.Errno = &errno
	}
	if len(f.Details) > 0 {
		orig.Details = jsonValues(f.Details)
	}
	return orig
}

// FromValidationFailure maps an input-validation failure. Every issue is kept, in order.
func FromValidationFailure(f *ValidationFailure) *Error {
	e := &Error{
		Code:    CodeValidationError,
		Message: "Validation failed",
		Data: Data{
			Recoverable: CodeValidationError.Recoverable(),
			Suggestion:  CodeValidationError.Suggestion(),
		},
		cause: f,
	}
	if len(f.Issues) == 0 {
		return e
	}

	e.Data.ValidationErrors = append([]ValidationIssue(nil), f.Issues...)
	first := f.Issues[0]
	e.Message = fmt.Sprintf("Validation failed for %q: %s", first.Path, first.Message)

	if len(f.Issues) == 1 {
		e.Data.Suggestion = CodeValidationError.SuggestionFor(first.Path)
		return e
	}
	paths := make([]string, 0, len(f.Issues))
	for _, issue := range f.Issues {
		paths = append(paths, displayPath(issue.Path))
	}
	e.Data.Suggestion = "Fix the following fields and try again: " + strings.Join(paths, ", ")
	return e
}

var (
	oauthExpiredCodes = map[string]struct{}{"invalid_grant": {}, "token_expired": {}}
	oauthDeniedCodes  = map[string]struct{}{"invalid_client": {}, "unauthorized_client": {}, "access_denied": {}}
)

// FromOAuthFailure maps an OAuth error. All OAuth failures are recoverable by re-authenticating.
func FromOAuthFailure(f *OAuthFailure) *Error {
	code := strings.ToLower(strings.TrimSpace(f.Code))
	detail := f.Message
	if detail == "" {
		detail = f.Code
	}

	var (
		c   Code
		msg string
	)
	_, expired := oauthExpiredCodes[code]
	_, denied := oauthDeniedCodes[code]
	switch {
	case expired || strings.Contains(strings.ToLower(f.Message), "expired"):
		c = CodeTokenExpired
		msg = "FreshBooks token expired: " + detail
	case denied:
		c = CodeNotAuthenticated
		msg = "FreshBooks authorization failed: " + detail
	default:
		c = CodeNotAuthenticated
		msg = "FreshBooks OAuth error: " + detail
	}

	return &Error{
		Code:    c,
		Message: msg,
		Data: Data{
			Original:    &Original{Code: f.Code, Message: f.Message},
			Recoverable: true,
			Suggestion:  c.Suggestion(),
		},
		cause: f,
	}
}

type networkClass struct {
	tokens  []string
	message string
}

// networkClasses are checked in order; the first token match wins.
var networkClasses = []networkClass{
	{
		tokens:  []string{"timeout", "timed out", "etimedout", "esockettimedout", "deadline exceeded"},
		message: "Request to FreshBooks timed out",
	},
	{
		tokens: []string{
			"econnrefused", "connection refused", "enotfound", "no such host", "eai_again",
			"network is unreachable", "ehostunreach", "no route to host",
		},
		message: "Could not connect to FreshBooks",
	},
	{
		tokens: []string{
			"socket hang up", "econnreset", "connection reset", "broken pipe", "epipe",
			"use of closed network connection", "unexpected eof", "server closed idle connection",
		},
		message: "Connection to FreshBooks closed unexpectedly",
	},
}

// classifyNetworkMessage returns the framing for msg and whether any network token matched.
func classifyNetworkMessage(msg string) (string, bool) {
	lower := strings.ToLower(msg)
	for _, class := range networkClasses {
		for _, token := range class.tokens {
			if strings.Contains(lower, token) {
				return class.message, true
			}
		}
	}
	return "", false
}

// FromNetworkFailure maps a transport failure.
func FromNetworkFailure(f *NetworkFailure) *Error {
	detail := "unknown network failure"
	if f.Err != nil {
		detail = f.Err.Error()
	}
	return networkError(detail, f)
}

// FromNetworkError maps a plain error whose message names a network condition.
func FromNetworkError(err error) *Error {
	return networkError(err.Error(), err)
}

func networkError(detail string, cause error) *Error {
	framing, matched := classifyNetworkMessage(detail)
	code := CodeServiceUnavailable
	if !matched {
		code = CodeInternalError
		framing = "Network error"
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", framing, detail),
		Data: Data{
			Original:    &Original{Code: "NETWORK_ERROR", Message: detail},
			Recoverable: true,
			Suggestion:  code.Suggestion(),
		},
		cause: cause,
	}
}

// FromHTTPStatus maps a bare HTTP status with no structured body.
func FromHTTPStatus(status int, statusText string) *Error {
	var code Code
	switch status {
	case http.StatusUnauthorized:
		code = CodeNotAuthenticated
	case http.StatusForbidden:
		code = CodePermissionDenied
	case http.StatusNotFound:
		code = CodeResourceNotFound
	case http.StatusConflict:
		code = CodeConflict
	case http.StatusUnprocessableEntity:
		code = CodeValidationError
	case http.StatusTooManyRequests:
		code = CodeRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = CodeServiceUnavailable
	default:
		code = CodeInternalError
	}
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("FreshBooks returned HTTP %d: %s", status, statusText),
		Data: Data{
			Original:    &Original{Code: fmt.Sprintf("HTTP_%d", status), Message: statusText},
			Recoverable: code.Recoverable(),
			Suggestion:  code.Suggestion(),
		},
	}
}

// FromHTTPStatusFailure maps an *HTTPStatusFailure, keeping it as the cause.
// A Retry-After hint is kept for RATE_LIMITED only.
func FromHTTPStatusFailure(f *HTTPStatusFailure) *Error {
	e := FromHTTPStatus(f.Status, f.StatusText)
	e.cause = f
	if e.Code == CodeRateLimited && f.RetryAfter != nil {
		secs := *f.RetryAfter
		e.Data.RetryAfterSeconds = &secs
	}
	return e
}

// FromUnknown maps anything that matched no other shape, including non-error values.
// A stack trace, when the value carries one, is kept in Original.Details["stack"].
func FromUnknown(v any) *Error {
	return fromUnknown(v, "")
}

func fromUnknown(v any, stack string) *Error {
	var (
		text  string
		cause error
	)
	switch x := v.(type) {
	case nil:
		text = "nil"
	case error:
		text = x.Error()
		cause = x
		if stack == "" && errors.GetReportableStackTrace(x) != nil {
			stack = fmt.Sprintf("%+v", x)
		}
	case string:
		text = x
	case fmt.Stringer:
		text = x.String()
	default:
		text = fmt.Sprintf("%v", x)
	}

	orig := &Original{Code: "UNKNOWN_ERROR", Message: text}
	if stack != "" {
		orig.Details = map[string]any{"stack": stack}
	}
	return &Error{
		Code:    CodeInternalError,
		Message: "Unexpected error: " + text,
		Data: Data{
			Original:    orig,
			Recoverable: true,
			Suggestion:  CodeInternalError.Suggestion(),
		},
		cause: cause,
	}
}
