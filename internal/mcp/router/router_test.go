// file: internal/mcp/router/router_test.go
package router

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

var errMockHandler = errors.New("mock handler error")

func echoHandler(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	return params, nil
}

func assertCode(t *testing.T, want mcperror.Code, err error) {
	t.Helper()
	var e *mcperror.Error
	require.True(t, errors.As(err, &e), "Expected *mcperror.Error, got %T.", err)
	assert.Equal(t, want, e.Code)
}

func TestRouter_AddRoute_RejectsInvalid(t *testing.T) {
	r := NewRouter(logging.GetNoopLogger())

	assert.Error(t, r.AddRoute(Route{Handler: echoHandler}), "Empty method should be rejected.")
	assert.Error(t, r.AddRoute(Route{Method: "ping"}), "Route without handler should be rejected.")
	require.NoError(t, r.AddRoute(Route{Method: "ping", Handler: echoHandler}))
	assert.Error(t, r.AddRoute(Route{Method: "ping", Handler: echoHandler}), "Duplicate method should be rejected.")
}

func TestRouter_Route_Request(t *testing.T) {
	r := NewRouter(nil)
	require.NoError(t, r.AddRoute(Route{Method: "echo", Handler: echoHandler}))

	out, err := r.Route(context.Background(), "echo", json.RawMessage(`{"x":1}`), false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(out))
}

func TestRouter_Route_UnknownMethod(t *testing.T) {
	r := NewRouter(nil)
	_, err := r.Route(context.Background(), "resources/list", nil, false)
	assertCode(t, mcperror.CodeMethodNotFound, err)
}

func TestRouter_Route_Notification(t *testing.T) {
	r := NewRouter(nil)
	var calls atomic.Int32
	require.NoError(t, r.AddRoute(Route{
		Method: "notifications/initialized",
		NotificationHandler: func(context.Context, json.RawMessage) error {
			calls.Add(1)
			return nil
		},
	}))

	out, err := r.Route(context.Background(), "notifications/initialized", nil, true)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.EqualValues(t, 1, calls.Load())

	_, err = r.Route(context.Background(), "notifications/initialized", nil, false)
	assertCode(t, mcperror.CodeMethodNotFound, err)
}

func TestRouter_Route_NotificationToRequestHandlerDiscardsResult(t *testing.T) {
	r := NewRouter(nil)
	require.NoError(t, r.AddRoute(Route{Method: "echo", Handler: echoHandler}))
	require.NoError(t, r.AddRoute(Route{Method: "fail", Handler: func(context.Context, json.RawMessage) (json.RawMessage, error) {
		return nil, errMockHandler
	}}))

	out, err := r.Route(context.Background(), "echo", json.RawMessage(`{}`), true)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = r.Route(context.Background(), "fail", nil, true)
	assert.ErrorIs(t, err, errMockHandler)
}

func TestRouter_Methods_Sorted(t *testing.T) {
	r := NewRouter(nil)
	for _, m := range []string{"tools/list", "initialize", "ping"} {
		require.NoError(t, r.AddRoute(Route{Method: m, Handler: echoHandler}))
	}
	assert.Equal(t, []string{"initialize", "ping", "tools/list"}, r.Methods())
}
