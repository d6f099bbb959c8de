package logger_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/phrazzld/taskpilot/internal/config"
	"github.com/phrazzld/taskpilot/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreDefault puts back the slog default replaced by Setup.
func restoreDefault(t *testing.T) {
	t.Helper()
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug level", "debug", slog.LevelDebug, true},
		{"info level", "info", slog.LevelInfo, true},
		{"warn level", "warn", slog.LevelWarn, true},
		{"error level", "error", slog.LevelError, true},
		{"case insensitive - DEBUG", "DEBUG", slog.LevelDebug, true},
		{"case insensitive - Info", "Info", slog.LevelInfo, true},
		{"surrounding spaces", " warn ", slog.LevelWarn, true},
		{"unknown", "verbose", slog.LevelInfo, false},
		{"empty", "", slog.LevelInfo, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := logger.ParseLevel(tc.input)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantOK, ok)
		})
	}
}

func TestSetupWithWriterFiltersByLevel(t *testing.T) {
	restoreDefault(t)

	buf := &logger.TestLogBuffer{}
	log, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "warn", Port: 8080}, buf)
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Info("info test message")
	log.Warn("warn test message", "task_id", "abc")
	slog.Error("error via default")

	output := buf.String()
	assert.NotContains(t, output, "info test message")
	assert.Contains(t, output, "warn test message")
	assert.Contains(t, output, "error via default", "Setup must install the logger as the slog default")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["task_id"])
	assert.Equal(t, "WARN", entries[0]["level"])
}

func TestSetupInvalidLevelDefaultsToInfo(t *testing.T) {
	restoreDefault(t)

	buf := &logger.TestLogBuffer{}
	log, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "invalid_level", Port: 8080}, buf)
	require.NoError(t, err)

	log.Debug("debug test message")
	log.Info("info test message")

	output := buf.String()
	assert.False(t, strings.Contains(output, "debug test message"))
	assert.True(t, strings.Contains(output, "info test message"))
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("falls back to the given default", func(t *testing.T) {
		fallback, buf := logger.GetTestLogger(t)
		logger.FromContextOrDefault(context.Background(), fallback).Info("from fallback")
		logger.AssertLogContains(t, buf, "from fallback")
	})

	t.Run("returns the stored logger", func(t *testing.T) {
		ctx, buf := logger.NewTestContext(t)
		logger.FromContext(ctx).Info("from context")
		logger.AssertLogContains(t, buf, "from context")
	})

	t.Run("attaches the request id", func(t *testing.T) {
		ctx, buf := logger.NewTestContext(t)
		ctx = logger.WithRequestID(ctx, "req-42")

		assert.Equal(t, "req-42", logger.RequestIDFromContext(ctx))
		logger.FromContext(ctx).Info("with request")

		entries, err := buf.EntriesWithMessage("with request")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "req-42", entries[0]["request_id"])
	})

	t.Run("missing request id", func(t *testing.T) {
		assert.Empty(t, logger.RequestIDFromContext(context.Background()))
	})
}
