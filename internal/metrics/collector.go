// Package metrics records tool call and tool error counts for the MCP server.
// file: internal/metrics/collector.go
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

const namespace = "freshbooks_mcp"

// ErrorInfo is a recent tool failure kept for diagnostics.
type ErrorInfo struct {
	Timestamp   time.Time     `json:"timestamp"`
	Tool        string        `json:"tool"`
	Code        mcperror.Code `json:"code"`
	Message     string        `json:"message"`
	Recoverable bool          `json:"recoverable"`
}

// Collector owns a private Prometheus registry and a bounded buffer of recent failures.
type Collector struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	toolErrors   *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec

	mu          sync.RWMutex
	errorBuffer []ErrorInfo
	bufferSize  int
}

// NewCollector creates a collector that keeps the last errorBufferSize failures.
func NewCollector(errorBufferSize int) *Collector {
	if errorBufferSize <= 0 {
		errorBufferSize = 1
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total tool invocations by tool name.",
		}, []string{"tool"}),
		toolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_errors_total",
			Help:      "Total failed tool invocations by tool, error code, and recoverability.",
		}, []string{"tool", "code", "recoverable"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		errorBuffer: make([]ErrorInfo, 0, errorBufferSize),
		bufferSize:  errorBufferSize,
	}
}

// RecordToolCall counts one invocation of tool and observes its latency.
func (c *Collector) RecordToolCall(tool string, elapsed time.Duration) {
	c.toolCalls.WithLabelValues(tool).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// RecordError counts a normalized failure of tool and keeps it in the recent-errors buffer.
// A nil error is ignored.
func (c *Collector) RecordError(tool string, e *mcperror.Error) {
	if e == nil {
		return
	}
	c.toolErrors.WithLabelValues(tool, e.Code.String(), strconv.FormatBool(e.Recoverable())).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errorBuffer) >= c.bufferSize {
		c.errorBuffer = c.errorBuffer[1:]
	}
	c.errorBuffer = append(c.errorBuffer, ErrorInfo{
		Timestamp:   time.Now().UTC(),
		Tool:        tool,
		Code:        e.Code,
		Message:     e.Message,
		Recoverable: e.Recoverable(),
	})
}

// LastErrors returns a copy of the recent-errors buffer, oldest first.
func (c *Collector) LastErrors() []ErrorInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ErrorInfo, len(c.errorBuffer))
	copy(out, c.errorBuffer)
	return out
}

// Registry exposes the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics endpoint listening.", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to shut down metrics server")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "metrics server on %s failed", addr)
	}
}
