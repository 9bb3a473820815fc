package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T, cfg *Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := NewLoggerWithWriter(cfg, zapcore.AddSync(buf))
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg)
	assert.ErrorContains(t, err, "invalid config")
}

func TestLogger_WritesJSONWithContext(t *testing.T) {
	logger, buf := newBufferLogger(t, NewDefaultConfig())

	ctx := WithTaskID(WithRequestID(context.Background(), "req-1"), 42)
	logger.Info(ctx, "task activated", zap.Bool("blocked", true))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "task activated", lines[0]["msg"])
	assert.Equal(t, "taskd", lines[0]["service"])
	assert.Equal(t, "req-1", lines[0]["request.id"])
	assert.Equal(t, float64(42), lines[0]["task.id"])
	assert.Equal(t, true, lines[0]["blocked"])
}

func TestLogger_TraceLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = "trace"
	cfg.Sampling.Enabled = false
	logger, buf := newBufferLogger(t, cfg)

	logger.Trace(context.Background(), "git invoked", zap.Strings("args", []string{"status"}))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "trace", lines[0]["level"])
}

func TestLogger_TraceFilteredAtInfo(t *testing.T) {
	logger, buf := newBufferLogger(t, NewDefaultConfig())

	logger.Trace(context.Background(), "hidden")
	logger.Debug(context.Background(), "hidden")

	assert.Empty(t, buf.String())
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	logger := NewTestLogger()
	ctx := WithRequestID(context.Background(), "req-9")

	tests := []struct {
		name    string
		logFunc func()
		level   zapcore.Level
	}{
		{"trace", func() { logger.Trace(ctx, "message") }, TraceLevel},
		{"debug", func() { logger.Debug(ctx, "message") }, zapcore.DebugLevel},
		{"info", func() { logger.Info(ctx, "message") }, zapcore.InfoLevel},
		{"warn", func() { logger.Warn(ctx, "message") }, zapcore.WarnLevel},
		{"error", func() { logger.Error(ctx, "message") }, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger.Reset()
			tt.logFunc()

			logs := logger.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, "req-9", logs[0].ContextMap()["request.id"])
		})
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	logger, buf := newBufferLogger(t, NewDefaultConfig())

	logger.Named("worktree").With(zap.String("component", "cleanup")).Info(context.Background(), "ready")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "worktree", lines[0]["logger"])
	assert.Equal(t, "cleanup", lines[0]["component"])
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info(context.Background(), "discarded")
	assert.NoError(t, logger.Sync())
	assert.NotNil(t, logger.Underlying())
}
