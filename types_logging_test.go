package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)
	logger.Error("also shown %s", "three")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "also shown three")
	assert.Contains(t, out, "AUTH")
}

func TestNewLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "loud")

	logger.Debug("debug line")
	logger.Info("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestNormalizeLogger(t *testing.T) {
	assert.NotNil(t, normalizeLogger(nil))

	l := &captureLogger{}
	assert.Same(t, l, normalizeLogger(l))
}

func TestRecordActivityLogsSinkFailure(t *testing.T) {
	logger := &captureLogger{}
	sink := ActivitySinkFunc(func(context.Context, ActivityEvent) error {
		return errors.New("queue full")
	})

	recordActivity(context.Background(), sink, logger, ActivityEvent{EventType: ActivityEventLogout})

	require.Len(t, logger.calls, 1)
	assert.Equal(t, "warn", logger.calls[0].level)
	assert.Equal(t, ActivityEventLogout, logger.calls[0].args[0])
}

func TestRecordActivityStampsTime(t *testing.T) {
	var got ActivityEvent
	sink := ActivitySinkFunc(func(_ context.Context, e ActivityEvent) error {
		got = e
		return nil
	})

	recordActivity(context.Background(), sink, &captureLogger{}, ActivityEvent{EventType: ActivityEventLogout})
	assert.False(t, got.OccurredAt.IsZero())
}

func TestMultiActivitySinkRunsEverySink(t *testing.T) {
	var calls int
	count := ActivitySinkFunc(func(context.Context, ActivityEvent) error {
		calls++
		return nil
	})
	failing := ActivitySinkFunc(func(context.Context, ActivityEvent) error {
		return errors.New("first")
	})

	err := MultiActivitySink{failing, nil, count, count}.Record(context.Background(), ActivityEvent{})
	assert.EqualError(t, err, "first")
	assert.Equal(t, 2, calls)
}
