package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/captureai/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferedPGHandler builds a handler around a bare sink, with no flush
// goroutine, so tests can inspect the buffered rows directly.
func bufferedPGHandler() *PGHandler {
	return &PGHandler{sink: &pgSink{buffer: make([]models.SystemLog, 0, logBatchSize)}}
}

func TestPGHandlerOnlyStoresErrors(t *testing.T) {
	h := bufferedPGHandler()
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPGHandlerMapsKnownAttrs(t *testing.T) {
	h := bufferedPGHandler()

	rec := slog.NewRecord(time.Now(), slog.LevelError, "webhook apply failed", 0)
	rec.AddAttrs(
		slog.String("request_id", "req-123"),
		slog.String("user_id", "user-1"),
		slog.String("action", "webhook"),
		slog.String("error", "connection reset"),
		slog.Float64("latency_ms", 12.6),
		slog.Int("status", 500),
	)
	require.NoError(t, h.Handle(context.Background(), rec))

	require.Len(t, h.sink.buffer, 1)
	entry := h.sink.buffer[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "webhook apply failed", entry.Message)
	assert.Equal(t, "req-123", entry.RequestID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "user-1", *entry.UserID)
	assert.Equal(t, "webhook", entry.Action)
	assert.Equal(t, "connection reset", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)
	assert.Contains(t, string(entry.Extra), `"status":500`)
}

func TestPGHandlerWithAttrsCarriesThrough(t *testing.T) {
	base := bufferedPGHandler()
	scoped := base.WithAttrs([]slog.Attr{slog.String("request_id", "req-9")})

	rec := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	require.NoError(t, scoped.Handle(context.Background(), rec))

	require.Len(t, base.sink.buffer, 1)
	assert.Equal(t, "req-9", base.sink.buffer[0].RequestID)

	// Record-level attrs override handler-level ones.
	rec = slog.NewRecord(time.Now(), slog.LevelError, "boom again", 0)
	rec.AddAttrs(slog.String("request_id", "req-10"))
	require.NoError(t, scoped.Handle(context.Background(), rec))
	assert.Equal(t, "req-10", base.sink.buffer[1].RequestID)
}
