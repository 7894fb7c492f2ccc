package log

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Global default logger
var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// SetDefault installs the process-wide default logger.
func SetDefault(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// Default returns the process-wide default logger. Before SetDefault is
// called it returns a logger writing plain lines to stderr.
func Default() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return &fallbackLogger{}
	}
	return globalLogger
}

// Component returns the default logger tagged with a component name.
func Component(component string) Logger {
	return Default().With(String(FieldComponent, component))
}

type contextKey string

const (
	loggerContextKey    contextKey = "logger"
	requestIDContextKey contextKey = "request_id"
)

// FromContext extracts a logger from the context, or returns the default logger.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return logger
	}
	return Default().WithContext(ctx)
}

// ToContext adds a logger to the context.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext returns the request id stored in the context.
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Fatal(string, ...Field) { os.Exit(1) }

func (n nopLogger) With(...Field) Logger { return n }

func (n nopLogger) WithContext(context.Context) Logger { return n }

// fallbackLogger writes unstructured lines to stderr until a real driver is installed
type fallbackLogger struct {
	fields []Field
}

func (l *fallbackLogger) Debug(msg string, fields ...Field) { l.write(DebugLevel, msg, fields) }
func (l *fallbackLogger) Info(msg string, fields ...Field)  { l.write(InfoLevel, msg, fields) }
func (l *fallbackLogger) Warn(msg string, fields ...Field)  { l.write(WarnLevel, msg, fields) }
func (l *fallbackLogger) Error(msg string, fields ...Field) { l.write(ErrorLevel, msg, fields) }

func (l *fallbackLogger) Fatal(msg string, fields ...Field) {
	l.write(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *fallbackLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &fallbackLogger{fields: merged}
}

func (l *fallbackLogger) WithContext(ctx context.Context) Logger {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		return l.With(String(FieldRequestID, requestID))
	}
	return l
}

func (l *fallbackLogger) write(level Level, msg string, fields []Field) {
	line := fmt.Sprintf("[%s] %s", level, msg)
	for _, f := range append(l.fields, fields...) {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	fmt.Fprintln(os.Stderr, line)
}
