// Package sinks delivers alert events raised by the scheduler.
package sinks

import (
	"context"

	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/models"
)

// Sink receives alert events
type Sink interface {
	Emit(ctx context.Context, event models.AlertEvent)
}

// LogSink writes each alert as a warning
type LogSink struct{}

// Emit logs the alert message
func (LogSink) Emit(ctx context.Context, event models.AlertEvent) {
	log := logger.WithComponent("alerts")
	log.Warn().
		Str("component_name", string(event.ComponentName)).
		Float64("current_value", event.CurrentValue).
		Float64("threshold_value", event.ThresholdValue).
		Time("timestamp", event.Timestamp).
		Msg(event.Message())
}

// QueueSink wraps alerts in envelopes and hands them to the delivery queue
// without blocking. Alerts that do not fit are dropped and counted.
type QueueSink struct {
	queue chan<- *models.Envelope
	node  string
}

// NewQueueSink creates a sink feeding queue, stamping envelopes with node
func NewQueueSink(queue chan<- *models.Envelope, node string) *QueueSink {
	return &QueueSink{queue: queue, node: node}
}

// Emit enqueues the alert or drops it when the queue is full
func (q *QueueSink) Emit(ctx context.Context, event models.AlertEvent) {
	envelope := models.NewEnvelope(&event, q.node)

	select {
	case q.queue <- envelope:
		metrics.WorkerQueueSize.Set(float64(len(q.queue)))
	default:
		metrics.AlertsDroppedTotal.Inc()
		log := logger.WithComponent("alerts")
		log.Warn().
			Str("alert_id", envelope.ID).
			Str("component_name", string(event.ComponentName)).
			Msg("alert queue full, dropping alert")
	}
}

// FanOut emits every alert to each of its sinks in order
type FanOut []Sink

// Emit forwards event to all sinks
func (f FanOut) Emit(ctx context.Context, event models.AlertEvent) {
	for _, s := range f {
		s.Emit(ctx, event)
	}
}
