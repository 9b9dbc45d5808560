// file: internal/freshbooks/client_test.go
package freshbooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/freshbooks-mcp/internal/config"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) AccessToken(context.Context) (string, error) { return s.token, s.err }

type countingToken struct {
	calls *int32
	err   error
}

func (c countingToken) AccessToken(context.Context) (string, error) {
	atomic.AddInt32(c.calls, 1)
	return "", c.err
}

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.FreshBooksConfig{
		APIBaseURL:        srv.URL,
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxRetries:        maxRetries,
		Timeout:           5 * time.Second,
	}, staticToken{token: "at-123"}, nil)
	c.retryInitial = time.Millisecond
	c.maxRetryWait = 10 * time.Millisecond
	return c, &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestGetTimeEntry_Succeeds(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/timetracking/business/77/time_entries/12", r.URL.Path)
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"time_entry":{"id":12,"duration":3600,"billable":true,"project_id":5}}`)
	}, 2)

	entry, err := c.GetTimeEntry(context.Background(), 77, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), entry.ID)
	assert.Equal(t, 3600, entry.Duration)
	assert.True(t, entry.Billable)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestListTimeEntries_SendsPagination(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("per_page"))
		assert.Empty(t, r.URL.Query().Get("client_id"))
		writeJSON(w, http.StatusOK, `{"time_entries":[{"id":1},{"id":2}],"meta":{"page":2,"pages":3,"per_page":25,"total":60}}`)
	}, 0)

	list, err := c.ListTimeEntries(context.Background(), 77, ListOptions{Page: 2, PerPage: 25})
	require.NoError(t, err)
	assert.Len(t, list.TimeEntries, 2)
	assert.Equal(t, 60, list.Meta.Total)
}

func TestCreateTimeEntry_PostsBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var in struct {
			TimeEntry TimeEntry `json:"time_entry"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "pairing", in.TimeEntry.Note)
		writeJSON(w, http.StatusOK, `{"time_entry":{"id":900,"note":"pairing","duration":1800}}`)
	}, 0)

	created, err := c.CreateTimeEntry(context.Background(), 77, TimeEntry{Note: "pairing", Duration: 1800, IsLogged: true})
	require.NoError(t, err)
	assert.Equal(t, int64(900), created.ID)
}

func TestGetInvoice_AccountingNotFound_IsNotRetried(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounting/account/ABC123/invoices/invoices/5", r.URL.Path)
		writeJSON(w, http.StatusNotFound, `{"response":{"errors":[{"errno":1012,"field":"invoiceid","message":"Invoice not found.","object":"invoice","value":"5"}]}}`)
	}, 3)

	_, err := c.GetInvoice(context.Background(), "ABC123", 5)
	var failure *mcperror.APIFailure
	require.True(t, errors.As(err, &failure), "Got %T: %v", err, err)
	assert.Equal(t, "NOT_FOUND", failure.Code)
	assert.Equal(t, 404, failure.StatusCode)
	assert.Equal(t, "invoiceid", failure.Field)
	assert.Equal(t, 1012, *failure.Errno)
	assert.Equal(t, "invoice", failure.Details["object"])
	assert.EqualValues(t, 1, atomic.LoadInt32(calls), "Not-found is not recoverable and must not be retried.")

	e := mcperror.Normalize(err, mcperror.Context{Tool: "invoice_single"})
	assert.Equal(t, mcperror.CodeResourceNotFound, e.Code)
	assert.False(t, e.Recoverable())
}

func TestDo_RateLimited_RetriesThenReportsRetryAfter(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		writeJSON(w, http.StatusTooManyRequests, `{"error":"Too many requests"}`)
	}, 2)

	_, err := c.GetTimeEntry(context.Background(), 1, 1)
	var failure *mcperror.APIFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", failure.Code)
	require.NotNil(t, failure.RetryAfter)
	assert.Equal(t, 0, *failure.RetryAfter)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls), "One attempt plus two retries.")
}

func TestDo_TransientFailure_RecoversOnRetry(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, `{"time_entry":{"id":3}}`)
	}, 2)

	entry, err := c.GetTimeEntry(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), entry.ID)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestDo_MalformedSuccessBody_IsNotRetried(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"time_entry": not-json`)
	}, 3)

	_, err := c.GetTimeEntry(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode FreshBooks response")
	assert.EqualValues(t, 1, atomic.LoadInt32(calls), "A body that fails to decode fails the same way on every attempt.")
}

func TestDo_TokenStoreError_IsNotRetried(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, 3)
	var tokenCalls int32
	c.tokens = countingToken{calls: &tokenCalls, err: errors.New("keyring locked")}

	_, err := c.GetTimeEntry(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "keyring locked")
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestDo_BareRateLimit_KeepsRetryAfter(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}, 0)

	_, err := c.GetTimeEntry(context.Background(), 1, 1)
	var failure *mcperror.HTTPStatusFailure
	require.True(t, errors.As(err, &failure), "Got %T: %v", err, err)
	require.NotNil(t, failure.RetryAfter)
	assert.Equal(t, 42, *failure.RetryAfter)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	e := mcperror.Normalize(err, mcperror.Context{})
	assert.Equal(t, mcperror.CodeRateLimited, e.Code)
	require.NotNil(t, e.Data.RetryAfterSeconds)
	assert.Equal(t, 42, *e.Data.RetryAfterSeconds)
}

func TestDo_PostIsNotRetried(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 3)

	_, err := c.CreateTimeEntry(context.Background(), 1, TimeEntry{})
	var failure *mcperror.HTTPStatusFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 503, failure.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestDo_TimeTrackingFieldErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"error":{"note":["is too long"],"duration":"must be positive"}}`)
	}, 0)

	_, err := c.CreateTimeEntry(context.Background(), 1, TimeEntry{})
	var failure *mcperror.APIFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "VALIDATION_ERROR", failure.Code)
	assert.Equal(t, "duration", failure.Field, "Fields are reported in sorted order.")
	assert.Equal(t, "must be positive", failure.Message)

	e := mcperror.Normalize(err, mcperror.Context{})
	assert.Equal(t, mcperror.CodeValidationError, e.Code)
	assert.Equal(t, `Validation failed for "duration": must be positive`, e.Message)
}

func TestDo_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(config.FreshBooksConfig{APIBaseURL: url, RequestsPerSecond: 100, Burst: 1}, staticToken{token: "t"}, nil)
	_, err := c.GetTimeEntry(context.Background(), 1, 1)

	var failure *mcperror.NetworkFailure
	require.True(t, errors.As(err, &failure), "Got %T: %v", err, err)
	assert.Equal(t, "GET /timetracking/business/1/time_entries/1", failure.Op)

	e := mcperror.Normalize(err, mcperror.Context{})
	assert.Equal(t, mcperror.CodeServiceUnavailable, e.Code)
	assert.Contains(t, e.Message, "Could not connect to FreshBooks")
}

func TestDo_TokenFailure_StopsBeforeRequest(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, 3)
	c.tokens = staticToken{err: &mcperror.OAuthFailure{Code: "invalid_grant"}}

	_, err := c.GetTimeEntry(context.Background(), 1, 1)
	var failure *mcperror.OAuthFailure
	require.True(t, errors.As(err, &failure))
	assert.EqualValues(t, 0, atomic.LoadInt32(calls))
}

func TestDo_UnstructuredErrorBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>nope</html>"))
	}, 0)

	_, err := c.GetTimeEntry(context.Background(), 1, 1)
	var failure *mcperror.HTTPStatusFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "Forbidden", failure.StatusText)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, parseRetryAfter("", now))
	assert.Nil(t, parseRetryAfter("soon", now))
	assert.Equal(t, 60, *parseRetryAfter("60", now))
	assert.Equal(t, 0, *parseRetryAfter("-5", now))
	assert.Equal(t, 30, *parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
}

func TestUpstreamCode(t *testing.T) {
	errno := errnoNotFound
	assert.Equal(t, "NOT_FOUND", upstreamCode(400, &errno))
	assert.Equal(t, "UNAUTHORIZED", upstreamCode(401, nil))
	assert.Equal(t, "VALIDATION_ERROR", upstreamCode(400, nil))
	assert.Equal(t, "INTERNAL_ERROR", upstreamCode(500, nil))
	assert.Equal(t, "HTTP_418", upstreamCode(418, nil))
}
