package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/logger"
	"sentinel/internal/models"
)

var breach = models.AlertEvent{
	ComponentName:  models.ComponentMemory,
	CurrentValue:   91.3,
	ThresholdValue: 90,
	Timestamp:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
}

type recordingSink struct{ events []models.AlertEvent }

func (r *recordingSink) Emit(ctx context.Context, e models.AlertEvent) {
	r.events = append(r.events, e)
}

func TestLogSink_WritesWarning(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", &buf)
	t.Cleanup(func() {
		logger.Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	buf.Reset()

	LogSink{}.Emit(context.Background(), breach)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Memory", entry["component_name"])
	assert.Equal(t, "Memory has reached its threshold: current 91.3%, threshold 90.0%", entry["message"])
}

func TestQueueSink_Enqueues(t *testing.T) {
	q := make(chan *models.Envelope, 1)
	sink := NewQueueSink(q, "node-a")

	sink.Emit(context.Background(), breach)

	require.Len(t, q, 1)
	env := <-q
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "node-a", env.Node)
	assert.Equal(t, "Memory", env.PartitionKey)
	assert.Equal(t, breach, *env.Alert)
}

func TestQueueSink_DropsWhenFull(t *testing.T) {
	q := make(chan *models.Envelope, 1)
	sink := NewQueueSink(q, "node-a")

	done := make(chan struct{})
	go func() {
		sink.Emit(context.Background(), breach)
		sink.Emit(context.Background(), breach)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "emit blocked on a full queue")
	}
	assert.Len(t, q, 1)
}

func TestFanOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}

	FanOut{a, b}.Emit(context.Background(), breach)

	assert.Equal(t, []models.AlertEvent{breach}, a.events)
	assert.Equal(t, []models.AlertEvent{breach}, b.events)
}
