// file: internal/mcperror/retry_test.go
package mcperror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		wantDelay time.Duration
		wantRetry bool
	}{
		{"rate limit hint", FromAPIFailure(&APIFailure{Code: "RATE_LIMIT_EXCEEDED", RetryAfter: intPtr(12)}), 12 * time.Second, true},
		{"rate limit default", New(CodeRateLimited, "x", Context{}), 60 * time.Second, true},
		{"unavailable", New(CodeServiceUnavailable, "x", Context{}), 30 * time.Second, true},
		{"internal", New(CodeInternalError, "x", Context{}), 5 * time.Second, true},
		{"token expired", New(CodeTokenExpired, "x", Context{}), time.Second, true},
		{"not found", New(CodeResourceNotFound, "x", Context{}), 0, false},
		{"conflict", New(CodeConflict, "x", Context{}), 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := RetryDelay(tt.err)
			assert.Equal(t, tt.wantRetry, ok)
			assert.Equal(t, tt.wantDelay, d)
			assert.Equal(t, tt.wantRetry, IsRetryable(tt.err))
		})
	}
}

func TestRecoverable_MatchesCodeDefaults(t *testing.T) {
	for _, c := range Codes() {
		e := New(c, "x", Context{})
		assert.Equal(t, c.Recoverable(), e.Recoverable(), "New(%s) should use the canonical default.", c)
		assert.NotEmpty(t, e.Data.Suggestion, "New(%s) should carry a suggestion.", c)
	}
}
