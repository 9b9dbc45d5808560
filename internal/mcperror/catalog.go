// file: internal/mcperror/catalog.go
package mcperror

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// Doc is the human-readable documentation for one taxonomy code.
// It is reference material only; no control flow reads it.
type Doc struct {
	Code     Code
	Title    string
	Cause    string
	Solution string
	Examples []string
}

var catalog = map[Code]Doc{
	CodeParseError: {
		Title:    "Parse error",
		Cause:    "The server received text that is not valid JSON.",
		Solution: "Fix the JSON syntax of the request (balanced braces, quoted keys).",
		Examples: []string{`{"jsonrpc": "2.0", "method": "tools/list"`},
	},
	CodeInvalidRequest: {
		Title:    "Invalid request",
		Cause:    "The JSON is valid but is not a JSON-RPC 2.0 request, or the request arrived before initialization.",
		Solution: "Send \"jsonrpc\": \"2.0\" with a method, and complete initialize before calling tools.",
		Examples: []string{`{"id": 1, "method": "tools/call"}`, "tools/call sent before initialize"},
	},
	CodeMethodNotFound: {
		Title:    "Method or tool not found",
		Cause:    "The requested JSON-RPC method or tool name is not registered.",
		Solution: "Call tools/list and use one of the returned tool names.",
		Examples: []string{"tools/call with name \"timeentry_delete_all\""},
	},
	CodeInvalidParams: {
		Title:    "Invalid params",
		Cause:    "The params object of the request is malformed, e.g. tools/call without a tool name.",
		Solution: "Send params as an object with \"name\" and \"arguments\".",
		Examples: []string{`{"method": "tools/call", "params": []}`},
	},
	CodeInternalError: {
		Title:    "Internal error",
		Cause:    "A failure that matched no known category, or an unknown FreshBooks error code.",
		Solution: "Retry once. If it persists, report the request ID from the error context.",
		Examples: []string{"Unexpected error: nil pointer dereference"},
	},
	CodeNotAuthenticated: {
		Title:    "Not authenticated",
		Cause:    "No FreshBooks credentials are stored, or FreshBooks rejected the client credentials.",
		Solution: "Complete the FreshBooks OAuth flow again.",
		Examples: []string{"UNAUTHORIZED from FreshBooks", "OAuth error invalid_client"},
	},
	CodeTokenExpired: {
		Title:    "Token expired",
		Cause:    "The access token expired and the refresh token was rejected.",
		Solution: "Refresh the token, or re-authenticate if the refresh token is no longer valid.",
		Examples: []string{"OAuth error invalid_grant", "TOKEN_EXPIRED from FreshBooks"},
	},
	CodePermissionDenied: {
		Title:    "Permission denied",
		Cause:    "The FreshBooks user does not have access to the requested business or operation.",
		Solution: "Use an account with a role that allows the operation.",
		Examples: []string{"FORBIDDEN from FreshBooks", "HTTP 403"},
	},
	CodeRateLimited: {
		Title:    "Rate limited",
		Cause:    "FreshBooks throttled the request.",
		Solution: "Wait for the retryAfter interval before sending the next request.",
		Examples: []string{"RATE_LIMIT_EXCEEDED with retryAfter 60", "HTTP 429"},
	},
	CodeResourceNotFound: {
		Title:    "Resource not found",
		Cause:    "The requested entity does not exist in the given account or business.",
		Solution: "Check the entity ID and the account ID; list the entities to find a valid ID.",
		Examples: []string{"TimeEntry with id 99999 was not found"},
	},
	CodeValidationError: {
		Title:    "Validation error",
		Cause:    "Tool arguments failed schema validation, or FreshBooks rejected a field value.",
		Solution: "Correct the fields listed in validationErrors.",
		Examples: []string{`Validation failed for "accountId": missing property`},
	},
	CodeConflict: {
		Title:    "Conflict",
		Cause:    "The change conflicts with the current state of the resource.",
		Solution: "Fetch the resource again and apply the change to its current version.",
		Examples: []string{"CONFLICT from FreshBooks", "HTTP 409"},
	},
	CodeServiceUnavailable: {
		Title:    "Service unavailable",
		Cause:    "FreshBooks or the network path to it is temporarily failing.",
		Solution: "Retry after a short delay.",
		Examples: []string{"HTTP 503", "socket hang up", "connection refused"},
	},
	CodeNetworkError: {
		Title:    "Network error",
		Cause:    "The connection to FreshBooks failed.",
		Solution: "Check connectivity and retry.",
	},
	CodeTimeout: {
		Title:    "Timeout",
		Cause:    "The operation did not complete within its deadline.",
		Solution: "Retry, or request less data at once.",
	},
}

// Lookup returns the documentation for code.
func Lookup(code Code) (Doc, bool) {
	doc, ok := catalog[code]
	if !ok {
		return Doc{}, false
	}
	doc.Code = code
	return doc, true
}

// Catalog returns the documentation for every code, in taxonomy order.
func Catalog() []Doc {
	docs := make([]Doc, 0, len(orderedCodes))
	for _, c := range orderedCodes {
		if doc, ok := Lookup(c); ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// RenderCatalog writes docs as markdown to w.
func RenderCatalog(w io.Writer, docs []Doc) error {
	var sb strings.Builder
	sb.WriteString("# Error reference\n")
	for _, doc := range docs {
		fmt.Fprintf(&sb, "\n## %s (%d): %s\n\n", doc.Code, int(doc.Code), doc.Title)
		fmt.Fprintf(&sb, "- Recoverable: %t\n", doc.Code.Recoverable())
		fmt.Fprintf(&sb, "- Cause: %s\n", doc.Cause)
		fmt.Fprintf(&sb, "- Solution: %s\n", doc.Solution)
		if len(doc.Examples) > 0 {
			sb.WriteString("- Examples:\n")
			for _, ex := range doc.Examples {
				fmt.Fprintf(&sb, "  - `%s`\n", ex)
			}
		}
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return errors.Wrap(err, "failed to write error catalog")
	}
	return nil
}
