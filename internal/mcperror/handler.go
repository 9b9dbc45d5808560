// file: internal/mcperror/handler.go
package mcperror

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Handler is the signature of a tool body.
type Handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// AccountScoped is implemented by tool inputs that target a FreshBooks account.
// WrapHandler copies the identifier into the error context.
type AccountScoped interface {
	AccountIdentifier() string
}

type requestIDKey struct{}

// RequestIDFromContext returns the request id WrapHandler assigned to the current invocation.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// newRequestID is replaced in tests.
var newRequestID = func() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), suffix)
}

// WrapHandler returns h with every returned error and every panic normalized into an
// *Error carrying {tool, requestId, accountId} context. Errors are never swallowed.
func WrapHandler[In, Out any](name string, h Handler[In, Out]) Handler[In, Out] {
	return func(ctx context.Context, in In) (out Out, err error) {
		requestID := newRequestID()
		errCtx := Context{Tool: name, RequestID: requestID}

		defer func() {
			if r := recover(); r != nil {
				var zero Out
				out = zero
				err = fromUnknown(r, string(debug.Stack())).WithContext(errCtx)
			}
		}()

		if scoped, ok := any(in).(AccountScoped); ok {
			errCtx.AccountID = scoped.AccountIdentifier()
		}

		out, err = h(context.WithValue(ctx, requestIDKey{}, requestID), in)
		if err != nil {
			var zero Out
			return zero, Normalize(err, errCtx)
		}
		return out, nil
	}
}

// Normalize converts any raw failure into an *Error with ctx merged in.
// It never panics; a failure inside normalization degrades to INTERNAL_ERROR.
// A nil raw value yields nil.
func Normalize(raw any, ctx Context) (out *Error) {
	if raw == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = fromUnknown(fmt.Sprintf("error normalization failed: %v", r), "").WithContext(ctx)
		}
	}()

	var e *Error
	if err, ok := raw.(error); ok {
		e = normalizeError(err)
	} else {
		e = FromUnknown(raw)
	}
	return e.WithContext(ctx)
}

// normalizeError routes err by concrete type. Already-normalized errors come first and
// are returned as-is; the raw-failure types are disjoint, so the order between them
// does not change the outcome for values produced by this module.
func normalizeError(err error) *Error {
	var (
		normalized *Error
		apiErr     *APIFailure
		valErr     *ValidationFailure
		oauthErr   *OAuthFailure
		netErr     *NetworkFailure
		statusErr  *HTTPStatusFailure
		e          *Error
	)
	switch {
	case errors.As(err, &normalized):
		return normalized
	case errors.As(err, &apiErr):
		e = FromAPIFailure(apiErr)
	case errors.As(err, &valErr):
		e = FromValidationFailure(valErr)
	case errors.As(err, &oauthErr):
		e = FromOAuthFailure(oauthErr)
	case errors.As(err, &netErr):
		e = FromNetworkFailure(netErr)
	case errors.As(err, &statusErr):
		e = FromHTTPStatusFailure(statusErr)
	case isNetworkError(err):
		e = FromNetworkError(err)
	default:
		return FromUnknown(err)
	}
	e.cause = err
	return e
}

// isNetworkError reports whether a plain error looks like a transport failure.
func isNetworkError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	_, matched := classifyNetworkMessage(err.Error())
	return matched
}

// --- Constructors for failures detected by tool logic ---.

// New builds an error with the canonical defaults of code. Codes outside the taxonomy
// become INTERNAL_ERROR.
func New(code Code, message string, ctx Context) *Error {
	if !code.Valid() {
		code = CodeInternalError
	}
	e := &Error{
		Code:    code,
		Message: message,
		Data: Data{
			Recoverable: code.Recoverable(),
			Suggestion:  code.Suggestion(),
		},
	}
	return e.WithContext(ctx)
}

// NewValidationError reports a business-rule violation in tool input,
// e.g. a billable time entry without a project.
func NewValidationError(message string, ctx Context) *Error {
	return New(CodeValidationError, message, ctx)
}

// NewAuthError reports missing or unusable credentials detected before calling FreshBooks.
func NewAuthError(message string, ctx Context) *Error {
	return New(CodeNotAuthenticated, message, ctx)
}

// NewNotFoundError reports an entity that tool logic determined does not exist.
func NewNotFoundError(resourceType string, id EntityID, ctx Context) *Error {
	msg := fmt.Sprintf("%s with id %s not found", resourceType, id)
	return New(CodeResourceNotFound, msg, ctx).WithContext(Context{EntityID: id})
}
