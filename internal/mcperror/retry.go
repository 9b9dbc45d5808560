// file: internal/mcperror/retry.go
package mcperror

import "time"

var defaultRetryDelays = map[Code]time.Duration{
	CodeRateLimited:        60 * time.Second,
	CodeServiceUnavailable: 30 * time.Second,
	CodeInternalError:      5 * time.Second,
}

const fallbackRetryDelay = time.Second

// IsRetryable reports whether e is worth retrying. It is the same as e.Recoverable().
func IsRetryable(e *Error) bool {
	return e != nil && e.Data.Recoverable
}

// RetryDelay returns how long to wait before retrying e, and false if e should not be
// retried at all. An upstream retry hint takes precedence over the per-code default.
func RetryDelay(e *Error) (time.Duration, bool) {
	if !IsRetryable(e) {
		return 0, false
	}
	if e.Data.RetryAfterSeconds != nil {
		return time.Duration(*e.Data.RetryAfterSeconds) * time.Second, true
	}
	if d, ok := defaultRetryDelays[e.Code]; ok {
		return d, true
	}
	return fallbackRetryDelay, true
}
