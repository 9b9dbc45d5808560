// file: internal/logging/slog.go
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Level is a logging level.
type Level = slog.Level

// Supported levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// level is shared by every logger built through InitLogging so SetLevel applies globally.
var level = new(slog.LevelVar)

type requestIDCtxKey struct{}

// ContextWithRequestID stores a request id that WithContext will attach to log lines.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, requestID)
}

// SlogLogger adapts *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// Debug implements Logger.
func (s *SlogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }

// Info implements Logger.
func (s *SlogLogger) Info(msg string, args ...any) { s.l.Info(msg, args...) }

// Warn implements Logger.
func (s *SlogLogger) Warn(msg string, args ...any) { s.l.Warn(msg, args...) }

// Error implements Logger.
func (s *SlogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// WithContext implements Logger. It attaches the request id stored by ContextWithRequestID, if any.
func (s *SlogLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return s
	}
	if id, ok := ctx.Value(requestIDCtxKey{}).(string); ok && id != "" {
		return &SlogLogger{l: s.l.With("requestId", id)}
	}
	return s
}

// WithField implements Logger.
func (s *SlogLogger) WithField(key string, value any) Logger {
	return &SlogLogger{l: s.l.With(key, value)}
}

// InitLogging installs a JSON logger writing to w at lvl as the default logger.
func InitLogging(lvl Level, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	level.Set(lvl)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	SetDefaultLogger(NewSlogLogger(slog.New(handler)))
}

// SetupDefaultLogger installs the default logger on stderr; stdout carries the protocol.
// Unknown level names fall back to info.
func SetupDefaultLogger(levelName string) {
	lvl, err := ParseLevel(levelName)
	if err != nil {
		lvl = LevelInfo
	}
	InitLogging(lvl, os.Stderr)
}

// SetLevel changes the level of loggers created by InitLogging.
func SetLevel(lvl Level) {
	level.Set(lvl)
}

// IsDebugEnabled reports whether debug logging is on.
func IsDebugEnabled() bool {
	return level.Level() <= LevelDebug
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Newf("invalid log level %q (must be debug, info, warn or error)", name)
	}
}
