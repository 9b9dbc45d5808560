// Package mcperror normalizes every failure a FreshBooks tool can hit into a single
// JSON-RPC error shape, classifies it as recoverable or not, and renders it for the
// wire, for the agent, and for logs.
// file: internal/mcperror/codes.go
package mcperror

import (
	"fmt"
	"strings"
)

// Code is a normalized error code. The set is closed: only the constants below are valid.
type Code int

// JSON-RPC 2.0 reserved codes.
const (
	CodeParseError     Code = -32700
	CodeInvalidRequest Code = -32600
	CodeMethodNotFound Code = -32601
	CodeInvalidParams  Code = -32602
	CodeInternalError  Code = -32603
)

// Application codes, in the implementation-defined server range.
// Values are declared explicitly so reordering the block cannot shift them.
const (
	CodeNotAuthenticated   Code = -32001
	CodeTokenExpired       Code = -32002
	CodePermissionDenied   Code = -32003
	CodeRateLimited        Code = -32004
	CodeResourceNotFound   Code = -32005
	CodeValidationError    Code = -32006
	CodeConflict           Code = -32007
	CodeServiceUnavailable Code = -32008
	CodeNetworkError       Code = -32009
	CodeTimeout            Code = -32010
)

// Kind groups codes by the nature of the failure.
type Kind string

// Failure kinds.
const (
	KindProtocol      Kind = "protocol"
	KindInput         Kind = "input"
	KindAuth          Kind = "auth"
	KindAuthorization Kind = "authorization"
	KindAbsence       Kind = "absence"
	KindConflict      Kind = "conflict"
	KindRateLimit     Kind = "rate_limit"
	KindTransient     Kind = "transient"
	KindUnclassified  Kind = "unclassified"
)

type codeInfo struct {
	name        string
	kind        Kind
	recoverable bool
	suggestion  string
}

// taxonomy is the single source of defaults; every mapping path reads from it.
var taxonomy = map[Code]codeInfo{
	CodeParseError: {
		name: "PARSE_ERROR", kind: KindProtocol, recoverable: false,
		suggestion: "Send the request as valid JSON.",
	},
	CodeInvalidRequest: {
		name: "INVALID_REQUEST", kind: KindProtocol, recoverable: false,
		suggestion: "Send a valid JSON-RPC 2.0 request object with \"jsonrpc\": \"2.0\" and a method.",
	},
	CodeMethodNotFound: {
		name: "METHOD_NOT_FOUND", kind: KindProtocol, recoverable: false,
		suggestion: "Check the method or tool name against the list returned by tools/list.",
	},
	CodeInvalidParams: {
		name: "INVALID_PARAMS", kind: KindProtocol, recoverable: true,
		suggestion: "Check the request parameters against the tool's input schema.",
	},
	CodeInternalError: {
		name: "INTERNAL_ERROR", kind: KindUnclassified, recoverable: true,
		suggestion: "An unexpected error occurred. Try again; if it keeps happening, report it with the request ID.",
	},
	CodeNotAuthenticated: {
		name: "NOT_AUTHENTICATED", kind: KindAuth, recoverable: true,
		suggestion: "Authenticate with FreshBooks again to obtain a valid access token.",
	},
	CodeTokenExpired: {
		name: "TOKEN_EXPIRED", kind: KindAuth, recoverable: true,
		suggestion: "The FreshBooks access token has expired. Refresh the token or re-authenticate.",
	},
	CodePermissionDenied: {
		name: "PERMISSION_DENIED", kind: KindAuthorization, recoverable: false,
		suggestion: "The authenticated FreshBooks user lacks permission for this operation. Check the user's role on the account.",
	},
	CodeRateLimited: {
		name: "RATE_LIMITED", kind: KindRateLimit, recoverable: true,
		suggestion: "Too many requests were sent to FreshBooks. Wait before retrying.",
	},
	CodeResourceNotFound: {
		name: "RESOURCE_NOT_FOUND", kind: KindAbsence, recoverable: false,
		suggestion: "Verify the resource ID and the account ID, then try again.",
	},
	CodeValidationError: {
		name: "VALIDATION_ERROR", kind: KindInput, recoverable: true,
		suggestion: "Check the input values and try again.",
	},
	CodeConflict: {
		name: "CONFLICT", kind: KindConflict, recoverable: false,
		suggestion: "The resource was changed or already exists. Fetch its current state before trying again.",
	},
	CodeServiceUnavailable: {
		name: "SERVICE_UNAVAILABLE", kind: KindTransient, recoverable: true,
		suggestion: "FreshBooks is temporarily unavailable. Try again in a few moments.",
	},
	CodeNetworkError: {
		name: "NETWORK_ERROR", kind: KindTransient, recoverable: true,
		suggestion: "Check the network connection to FreshBooks and try again.",
	},
	CodeTimeout: {
		name: "TIMEOUT", kind: KindTransient, recoverable: true,
		suggestion: "The request took too long. Try again, or narrow the request (for example a smaller page size).",
	},
}

// orderedCodes lists the taxonomy in its canonical order.
var orderedCodes = []Code{
	CodeParseError,
	CodeInvalidRequest,
	CodeMethodNotFound,
	CodeInvalidParams,
	CodeInternalError,
	CodeNotAuthenticated,
	CodeTokenExpired,
	CodePermissionDenied,
	CodeRateLimited,
	CodeResourceNotFound,
	CodeValidationError,
	CodeConflict,
	CodeServiceUnavailable,
	CodeNetworkError,
	CodeTimeout,
}

// Codes returns every taxonomy code in canonical order.
func Codes() []Code {
	out := make([]Code, len(orderedCodes))
	copy(out, orderedCodes)
	return out
}

// Valid reports whether c belongs to the taxonomy.
func (c Code) Valid() bool {
	_, ok := taxonomy[c]
	return ok
}

// String returns the taxonomy name, e.g. "RESOURCE_NOT_FOUND".
func (c Code) String() string {
	if info, ok := taxonomy[c]; ok {
		return info.name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}

// Kind returns the failure kind of c. Unknown codes are unclassified.
func (c Code) Kind() Kind {
	if info, ok := taxonomy[c]; ok {
		return info.kind
	}
	return KindUnclassified
}

// IsStandard reports whether c is one of the JSON-RPC 2.0 reserved codes.
func (c Code) IsStandard() bool {
	return c <= -32600 && c >= -32700 && c.Valid()
}

// Recoverable returns the canonical recoverable default for c.
func (c Code) Recoverable() bool {
	if info, ok := taxonomy[c]; ok {
		return info.recoverable
	}
	return taxonomy[CodeInternalError].recoverable
}

// Suggestion returns the canonical remediation text for c.
func (c Code) Suggestion() string {
	if info, ok := taxonomy[c]; ok {
		return info.suggestion
	}
	return taxonomy[CodeInternalError].suggestion
}

// SuggestionFor returns a remediation that names field when the code has a field-specific form.
// With an empty field it is the same as Suggestion.
func (c Code) SuggestionFor(field string) string {
	if field == "" {
		return c.Suggestion()
	}
	switch c {
	case CodeValidationError, CodeInvalidParams:
		return fmt.Sprintf("Check the value provided for %q and try again.", field)
	case CodeResourceNotFound:
		return fmt.Sprintf("Verify the value of %q refers to an existing resource in this account.", field)
	default:
		return c.Suggestion()
	}
}

// ParseCode resolves a taxonomy name (case-insensitive) back to its code.
func ParseCode(name string) (Code, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, c := range orderedCodes {
		if taxonomy[c].name == name {
			return c, true
		}
	}
	return 0, false
}
