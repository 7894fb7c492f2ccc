package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/songzhibin97/portfolio/pkg/log"
)

func newTestLogger(t *testing.T, level log.Level) (*StdoutLogger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	logger, err := New(&Config{Level: level, Output: &buf})
	require.NoError(t, err)
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := make(map[string]interface{})
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "custom config", config: DefaultConfig()},
		{
			name: "caller and custom time format",
			config: &Config{
				Level:        log.DebugLevel,
				TimeFormat:   "2006-01-02",
				EnableCaller: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestStdoutLogger_WritesJSON(t *testing.T) {
	logger, buf := newTestLogger(t, log.InfoLevel)

	logger.Info("record created",
		log.String("collection", "Detail"),
		log.Int("count", 3),
		log.Bool("ok", true),
		log.Duration("latency", 1500*time.Millisecond),
		log.Error(errors.New("boom")),
	)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "record created", entry["message"])
	assert.Equal(t, "Detail", entry["collection"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Equal(t, true, entry["ok"])
	assert.Equal(t, "1.5s", entry["latency"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "timestamp")
}

func TestStdoutLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, log.WarnLevel)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["message"])
	assert.Equal(t, "error", entries[1]["message"])
}

func TestStdoutLogger_WithDoesNotLeakFields(t *testing.T) {
	logger, buf := newTestLogger(t, log.InfoLevel)

	child := logger.With(log.String(log.FieldComponent, "repository"))
	child.Info("child")
	logger.Info("parent")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "repository", entries[0][log.FieldComponent])
	assert.NotContains(t, entries[1], log.FieldComponent)
}

func TestStdoutLogger_WithContext(t *testing.T) {
	logger, buf := newTestLogger(t, log.InfoLevel)

	assert.Same(t, logger, logger.WithContext(context.Background()))

	ctx := log.WithRequestID(context.Background(), "req-1")
	logger.WithContext(ctx).Info("handled")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0][log.FieldRequestID])
	assert.NotContains(t, entries[0], log.FieldTraceID)
}

func TestStdoutLogger_WithContextSpan(t *testing.T) {
	logger, buf := newTestLogger(t, log.InfoLevel)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.WithContext(ctx).Info("handled")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0][log.FieldTraceID])
	assert.Equal(t, "00f067aa0ba902b7", entries[0][log.FieldSpanID])
	assert.NotContains(t, entries[0], log.FieldRequestID)
}

func TestConvertLogLevel(t *testing.T) {
	assert.Equal(t, "debug", convertLogLevel(log.DebugLevel).String())
	assert.Equal(t, "error", convertLogLevel(log.ErrorLevel).String())
	assert.Equal(t, "info", convertLogLevel(log.Level(42)).String())
}
