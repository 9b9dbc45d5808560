// file: internal/mcperror/types.go
package mcperror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Error is the normalized error: the one shape every failure takes once it crosses a
// tool boundary. It is built once per failure and not mutated afterwards; WithContext
// returns a copy.
type Error struct {
	// Code is always a taxonomy code.
	Code Code
	// Message is deterministic for a given raw failure.
	Message string
	// Data is the JSON-RPC error data payload.
	Data Data

	cause error
}

// Data is the payload carried in the JSON-RPC error "data" member.
type Data struct {
	Original          *Original         `json:"freshbooksError,omitempty"`
	Context           *Context          `json:"context,omitempty"`
	Recoverable       bool              `json:"recoverable"`
	Suggestion        string            `json:"suggestion"`
	RetryAfterSeconds *int              `json:"retryAfter,omitempty"`
	ValidationErrors  []ValidationIssue `json:"validationErrors,omitempty"`
}

// Original is the verbatim descriptor of the source-side error, kept for debugging.
// Nothing should branch on it.
type Original struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Errno   *int           `json:"errno,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationIssue is a single input-validation problem.
type ValidationIssue struct {
	Path     string `json:"path"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Message)
}

// Unwrap returns the raw failure the error was normalized from, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Recoverable reports whether retrying or following the suggestion may succeed.
func (e *Error) Recoverable() bool {
	return e.Data.Recoverable
}

// Field returns the upstream field name the failure refers to, if known.
func (e *Error) Field() string {
	if e.Data.Original == nil {
		return ""
	}
	return e.Data.Original.Field
}

// WithContext returns a copy of e with ctx merged into its context.
// Keys already present on e win; ctx only fills the gaps.
func (e *Error) WithContext(ctx Context) *Error {
	out := e.clone()
	if ctx.IsZero() {
		return out
	}
	if out.Data.Context == nil {
		merged := ctx.clone()
		out.Data.Context = &merged
		return out
	}
	merged := out.Data.Context.merge(ctx)
	out.Data.Context = &merged
	return out
}

// Context returns the error's context, or the zero Context.
func (e *Error) Context() Context {
	if e.Data.Context == nil {
		return Context{}
	}
	return e.Data.Context.clone()
}

func (e *Error) clone() *Error {
	out := *e
	if e.Data.Original != nil {
		orig := *e.Data.Original
		orig.Details = jsonValues(e.Data.Original.Details)
		out.Data.Original = &orig
	}
	if e.Data.Context != nil {
		c := e.Data.Context.clone()
		out.Data.Context = &c
	}
	if e.Data.RetryAfterSeconds != nil {
		v := *e.Data.RetryAfterSeconds
		out.Data.RetryAfterSeconds = &v
	}
	if e.Data.ValidationErrors != nil {
		out.Data.ValidationErrors = append([]ValidationIssue(nil), e.Data.ValidationErrors...)
	}
	return &out
}

type wireError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Data    Data   `json:"data"`
}

// MarshalJSON renders e as a JSON-RPC error object.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireError{Code: e.Code, Message: e.Message, Data: e.Data})
}

// UnmarshalJSON reads a JSON-RPC error object. Codes outside the taxonomy are rejected.
func (e *Error) UnmarshalJSON(b []byte) error {
	var w wireError
	if err := json.Unmarshal(b, &w); err != nil {
		return errors.Wrap(err, "failed to decode error object")
	}
	if !w.Code.Valid() {
		return errors.Newf("error code %d is not part of the taxonomy", int(w.Code))
	}
	e.Code = w.Code
	e.Message = w.Message
	e.Data = w.Data
	return nil
}

// --- Context ---.

// Context is caller-supplied metadata attached to a normalized error.
type Context struct {
	Tool      string
	AccountID string
	EntityID  EntityID
	RequestID string
	// Extra holds free-form keys. Keys that collide with the named fields are ignored.
	// Numbers are held as float64 once the context is attached to an error.
	Extra map[string]any
}

// IsZero reports whether no field of c is set.
func (c Context) IsZero() bool {
	return c.Tool == "" && c.AccountID == "" && c.EntityID.IsZero() && c.RequestID == "" && len(c.Extra) == 0
}

// merge fills c's unset fields from other. Set fields in c are never replaced.
func (c Context) merge(other Context) Context {
	out := c.clone()
	if out.Tool == "" {
		out.Tool = other.Tool
	}
	if out.AccountID == "" {
		out.AccountID = other.AccountID
	}
	if out.EntityID.IsZero() {
		out.EntityID = other.EntityID
	}
	if out.RequestID == "" {
		out.RequestID = other.RequestID
	}
	for k, v := range other.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(other.Extra))
		}
		if _, exists := out.Extra[k]; !exists {
			out.Extra[k] = jsonValue(v)
		}
	}
	return out
}

func (c Context) clone() Context {
	out := c
	out.Extra = jsonValues(c.Extra)
	return out
}

// jsonValues copies m with every number held as float64, the form encoding/json
// decodes numbers into, so Details and Extra survive a wire round trip unchanged.
func jsonValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return jsonValues(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return v
	}
}

var reservedContextKeys = map[string]struct{}{
	"tool": {}, "accountId": {}, "entityId": {}, "requestId": {},
}

// MarshalJSON flattens Extra next to the named keys.
func (c Context) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+4)
	for k, v := range c.Extra {
		if _, reserved := reservedContextKeys[k]; reserved {
			continue
		}
		m[k] = v
	}
	if c.Tool != "" {
		m["tool"] = c.Tool
	}
	if c.AccountID != "" {
		m["accountId"] = c.AccountID
	}
	if !c.EntityID.IsZero() {
		m["entityId"] = c.EntityID
	}
	if c.RequestID != "" {
		m["requestId"] = c.RequestID
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Context) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.Wrap(err, "failed to decode error context")
	}
	*c = Context{}
	for k, v := range raw {
		var err error
		switch k {
		case "tool":
			err = json.Unmarshal(v, &c.Tool)
		case "accountId":
			err = json.Unmarshal(v, &c.AccountID)
		case "entityId":
			err = json.Unmarshal(v, &c.EntityID)
		case "requestId":
			err = json.Unmarshal(v, &c.RequestID)
		default:
			var val any
			err = json.Unmarshal(v, &val)
			if err == nil {
				if c.Extra == nil {
					c.Extra = make(map[string]any)
				}
				c.Extra[k] = val
			}
		}
		if err != nil {
			return errors.Wrapf(err, "failed to decode error context key %q", k)
		}
	}
	return nil
}

// --- EntityID ---.

// EntityID identifies a FreshBooks entity. Most entities use numeric ids; a few use strings.
type EntityID struct {
	num   int64
	str   string
	isNum bool
	isStr bool
}

// NumericID returns a numeric entity id.
func NumericID(n int64) EntityID {
	return EntityID{num: n, isNum: true}
}

// StringID returns a string entity id. An empty string yields the zero EntityID.
func StringID(s string) EntityID {
	if s == "" {
		return EntityID{}
	}
	return EntityID{str: s, isStr: true}
}

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool {
	return !id.isNum && !id.isStr
}

// Int64 returns the numeric value and whether the id is numeric.
func (id EntityID) Int64() (int64, bool) {
	return id.num, id.isNum
}

// String renders the id for messages.
func (id EntityID) String() string {
	switch {
	case id.isNum:
		return strconv.FormatInt(id.num, 10)
	case id.isStr:
		return id.str
	default:
		return ""
	}
}

// MarshalJSON writes numeric ids as numbers and string ids as strings.
func (id EntityID) MarshalJSON() ([]byte, error) {
	switch {
	case id.isNum:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	case id.isStr:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, string or null.
func (id *EntityID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = EntityID{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return errors.Wrap(err, "invalid entity id")
		}
		*id = StringID(s)
	default:
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "entity id %s is not an integer", string(b))
		}
		*id = NumericID(n)
	}
	return nil
}
