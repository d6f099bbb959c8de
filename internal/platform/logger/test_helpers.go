package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLogBuffer records every line written by a JSON handler. Safe for
// concurrent writers.
type TestLogBuffer struct {
	mu    sync.Mutex
	lines [][]byte
}

func (b *TestLogBuffer) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)

	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
	return len(p), nil
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(bytes.Join(b.lines, nil))
}

// GetLogEntries decodes the captured records in the order they were written.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewBufferString(b.String()))

	var entries []map[string]any
	for {
		var entry map[string]any
		err := dec.Decode(&entry)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// EntriesWithMessage keeps the records whose msg field equals message.
func (b *TestLogBuffer) EntriesWithMessage(message string) ([]map[string]any, error) {
	entries, err := b.GetLogEntries()
	if err != nil {
		return nil, err
	}

	var matched []map[string]any
	for _, entry := range entries {
		if msg, _ := entry[slog.MessageKey].(string); msg == message {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// GetTestLogger returns a debug level JSON logger and the buffer it writes to.
func GetTestLogger(t *testing.T) (*slog.Logger, *TestLogBuffer) {
	t.Helper()

	buf := &TestLogBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// NewTestContext is GetTestLogger with the logger already attached to a context.
func NewTestContext(t *testing.T) (context.Context, *TestLogBuffer) {
	t.Helper()

	log, buf := GetTestLogger(t)
	return WithLogger(context.Background(), log), buf
}

func AssertLogContains(t *testing.T, buf *TestLogBuffer, content string) {
	t.Helper()

	assert.Containsf(t, buf.String(), content, "captured logs:\n%s", buf.String())
}
