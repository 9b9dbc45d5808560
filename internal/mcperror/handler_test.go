// file: internal/mcperror/handler_test.go
package mcperror

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRequestID(t *testing.T, id string) {
	t.Helper()
	orig := newRequestID
	newRequestID = func() string { return id }
	t.Cleanup(func() { newRequestID = orig })
}

type scopedInput struct {
	AccountID string
	EntryID   int64
}

func (s scopedInput) AccountIdentifier() string { return s.AccountID }

func TestNormalize_NotFoundTimeEntry(t *testing.T) {
	raw := &APIFailure{StatusCode: 404, Code: "NOT_FOUND", Message: "TimeEntry not found", Errno: intPtr(1012)}
	e := Normalize(raw, Context{Tool: "timeentry_single", EntityID: NumericID(99999)})

	require.NotNil(t, e)
	assert.Equal(t, CodeResourceNotFound, e.Code)
	assert.False(t, e.Recoverable())
	assert.Equal(t, "NOT_FOUND", e.Data.Original.Code)
	assert.Equal(t, 1012, *e.Data.Original.Errno)
	assert.Contains(t, e.Message, "not found")
	assert.Equal(t, "timeentry_single", e.Context().Tool)
	n, ok := e.Context().EntityID.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(99999), n)
	assert.Same(t, raw, e.Unwrap(), "The raw failure is kept as the cause.")
}

func TestNormalize_MultipleValidationIssues(t *testing.T) {
	raw := &ValidationFailure{Issues: []ValidationIssue{
		{Path: "accountId", Message: "missing property", Code: "required"},
		{Path: "hours", Message: "must be >= 0", Code: "minimum"},
	}}
	e := Normalize(raw, Context{Tool: "timeentry_create"})

	assert.Equal(t, CodeValidationError, e.Code)
	assert.True(t, e.Recoverable())
	require.Len(t, e.Data.ValidationErrors, 2)
	assert.Equal(t, "accountId", e.Data.ValidationErrors[0].Path)
	assert.Contains(t, e.Message, "accountId", "The message names the first issue.")
}

func TestNormalize_RateLimitKeepsRetryAfter(t *testing.T) {
	raw := &APIFailure{StatusCode: 429, Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests", RetryAfter: intPtr(60)}
	e := Normalize(raw, Context{Tool: "timeentry_list"})

	assert.Equal(t, CodeRateLimited, e.Code)
	assert.True(t, e.Recoverable())
	require.NotNil(t, e.Data.RetryAfterSeconds)
	assert.Equal(t, 60, *e.Data.RetryAfterSeconds)
	assert.Contains(t, NewFormatter(false).Markdown(e), "Retry After: 60 seconds")
}

func TestNormalize_SocketHangUp(t *testing.T) {
	e := Normalize(errors.New("socket hang up"), Context{Tool: "invoice_single"})

	assert.Equal(t, CodeServiceUnavailable, e.Code)
	assert.True(t, e.Recoverable())
	assert.Contains(t, e.Message, "closed unexpectedly")
	assert.Nil(t, e.Data.ValidationErrors)
}

func TestNormalize_RoutesByType(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Code
	}{
		{"oauth", &OAuthFailure{Code: "invalid_grant"}, CodeTokenExpired},
		{"network failure", &NetworkFailure{Err: errors.New("connection refused")}, CodeServiceUnavailable},
		{"http status", &HTTPStatusFailure{Status: 403}, CodePermissionDenied},
		{"net.Error", timeoutErr{}, CodeServiceUnavailable},
		{"wrapped api failure", errors.Wrap(&APIFailure{Code: "CONFLICT"}, "update failed"), CodeConflict},
		{"plain error", errors.New("nil map write"), CodeInternalError},
		{"string", "just a string", CodeInternalError},
		{"struct", struct{ X int }{1}, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Normalize(tt.raw, Context{Tool: "t"})
			require.NotNil(t, e)
			assert.Equal(t, tt.want, e.Code)
			assert.True(t, e.Code.Valid(), "Normalized codes are always in the taxonomy.")
			assert.Equal(t, "t", e.Context().Tool)
		})
	}
}

func TestNormalize_NilYieldsNil(t *testing.T) {
	assert.Nil(t, Normalize(nil, Context{Tool: "t"}))
}

func TestNormalize_IsIdempotent(t *testing.T) {
	ctx := Context{Tool: "timeentry_single", RequestID: "req_1_aaaaaaaa"}
	inputs := []any{
		&APIFailure{Code: "NOT_FOUND", Message: "gone"},
		&ValidationFailure{Issues: []ValidationIssue{{Path: "a", Message: "b"}}},
		errors.New("ECONNREFUSED"),
		"odd",
	}
	for i, raw := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			once := Normalize(raw, ctx)
			twice := Normalize(once, ctx)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNormalize_DoesNotOverwriteContext(t *testing.T) {
	first := Normalize(&APIFailure{Code: "NOT_FOUND"}, Context{Tool: "timeentry_single", Extra: map[string]any{"page": 1}})
	second := Normalize(first, Context{Tool: "other_tool", AccountID: "ABC123", Extra: map[string]any{"page": 2, "perPage": 50}})

	ctx := second.Context()
	assert.Equal(t, "timeentry_single", ctx.Tool, "Existing keys win.")
	assert.Equal(t, "ABC123", ctx.AccountID, "Missing keys are filled.")
	assert.EqualValues(t, 1, ctx.Extra["page"])
	assert.EqualValues(t, 50, ctx.Extra["perPage"])
	assert.Equal(t, "timeentry_single", first.Context().Tool)
	assert.Empty(t, first.Context().AccountID, "The original error is not mutated.")
}

func TestWrapHandler_PassesThroughSuccess(t *testing.T) {
	fixedRequestID(t, "req_1700000000000_deadbeef")
	var seen string
	h := WrapHandler("timeentry_single", func(ctx context.Context, in scopedInput) (string, error) {
		seen, _ = RequestIDFromContext(ctx)
		return "ok", nil
	})

	out, err := h(context.Background(), scopedInput{AccountID: "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "req_1700000000000_deadbeef", seen)
}

func TestWrapHandler_NormalizesErrorsWithContext(t *testing.T) {
	fixedRequestID(t, "req_1700000000000_deadbeef")
	h := WrapHandler("timeentry_single", func(_ context.Context, in scopedInput) (string, error) {
		return "partial", &APIFailure{StatusCode: 404, Code: "NOT_FOUND", Message: "no entry"}
	})

	out, err := h(context.Background(), scopedInput{AccountID: "ABC123", EntryID: 7})
	require.Error(t, err)
	assert.Empty(t, out, "Output is zeroed on failure.")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, CodeResourceNotFound, e.Code)
	ctx := e.Context()
	assert.Equal(t, "timeentry_single", ctx.Tool)
	assert.Equal(t, "ABC123", ctx.AccountID)
	assert.Equal(t, "req_1700000000000_deadbeef", ctx.RequestID)
}

func TestWrapHandler_RecoversPanics(t *testing.T) {
	fixedRequestID(t, "req_1_cafebabe")
	h := WrapHandler("invoice_single", func(_ context.Context, _ scopedInput) (int, error) {
		panic("index out of range")
	})

	out, err := h(context.Background(), scopedInput{})
	require.Error(t, err)
	assert.Zero(t, out)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, CodeInternalError, e.Code)
	assert.True(t, e.Recoverable())
	assert.Equal(t, "Unexpected error: index out of range", e.Message)
	assert.Equal(t, "invoice_single", e.Context().Tool)
	assert.Equal(t, "req_1_cafebabe", e.Context().RequestID)
	assert.NotEmpty(t, e.Data.Original.Details["stack"])
}

func TestWrapHandler_RequestIDFormat(t *testing.T) {
	id := newRequestID()
	assert.Regexp(t, `^req_\d+_[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, newRequestID())
}

func TestConstructors(t *testing.T) {
	ctx := Context{Tool: "timeentry_create"}

	v := NewValidationError("billable entries need a project", ctx)
	assert.Equal(t, CodeValidationError, v.Code)
	assert.True(t, v.Recoverable())

	a := NewAuthError("no stored credentials", ctx)
	assert.Equal(t, CodeNotAuthenticated, a.Code)

	nf := NewNotFoundError("Invoice", NumericID(42), ctx)
	assert.Equal(t, "Invoice with id 42 not found", nf.Message)
	assert.False(t, nf.Recoverable())
	assert.Equal(t, "42", nf.Context().EntityID.String())
	assert.Equal(t, "timeentry_create", nf.Context().Tool)

	assert.Equal(t, CodeInternalError, New(Code(-1), "bad", ctx).Code, "Unknown codes fall back to INTERNAL_ERROR.")
}
