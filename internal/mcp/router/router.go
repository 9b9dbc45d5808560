// Package router dispatches MCP methods to their handlers.
// file: internal/mcp/router/router.go
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// Handler handles a request and returns its result.
type Handler func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// NotificationHandler handles a notification. There is no result.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Route maps one method to its handlers. At least one handler must be set.
type Route struct {
	Method              string
	Handler             Handler
	NotificationHandler NotificationHandler
}

// Router holds the registered routes.
type Router struct {
	mu     sync.RWMutex
	routes map[string]Route
	logger logging.Logger
}

// NewRouter returns an empty router.
func NewRouter(logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Router{
		routes: make(map[string]Route),
		logger: logger.WithField("component", "mcp_router"),
	}
}

// AddRoute registers route. Duplicate or handler-less routes are rejected.
func (r *Router) AddRoute(route Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if route.Method == "" {
		return errors.New("cannot register route with empty method name")
	}
	if route.Handler == nil && route.NotificationHandler == nil {
		return errors.Newf("route for method %q has no handler", route.Method)
	}
	if _, exists := r.routes[route.Method]; exists {
		return errors.Newf("route for method %q already registered", route.Method)
	}
	r.routes[route.Method] = route
	r.logger.Debug("Registered route.", "method", route.Method)
	return nil
}

// Route runs the handler for method. Unknown methods, and requests for
// notification-only methods, yield a METHOD_NOT_FOUND *mcperror.Error.
// Notifications never produce result bytes.
func (r *Router) Route(ctx context.Context, method string, params json.RawMessage, isNotification bool) (json.RawMessage, error) {
	r.mu.RLock()
	route, exists := r.routes[method]
	r.mu.RUnlock()

	if !exists {
		r.logger.Warn("Method not found in router.", "method", method)
		return nil, methodNotFound(method, fmt.Sprintf("Method %q not found", method))
	}

	if isNotification {
		if route.NotificationHandler != nil {
			return nil, route.NotificationHandler(ctx, params)
		}
		r.logger.Debug("Notification sent to request method, discarding result.", "method", method)
		_, err := route.Handler(ctx, params)
		return nil, err
	}

	if route.Handler == nil {
		return nil, methodNotFound(method, fmt.Sprintf("Method %q is notification-only", method))
	}
	return route.Handler(ctx, params)
}

func methodNotFound(method, message string) *mcperror.Error {
	return mcperror.New(mcperror.CodeMethodNotFound, message, mcperror.Context{Extra: map[string]any{"method": method}})
}

// Methods returns the registered method names, sorted.
func (r *Router) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]string, 0, len(r.routes))
	for m := range r.routes {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}
