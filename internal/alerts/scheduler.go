package alerts

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/models"
)

// MetricSource supplies the current host utilisation.
type MetricSource interface {
	CurrentMetrics(ctx context.Context) (models.MetricSnapshot, error)
}

// RuleSource supplies the enabled threshold rules.
type RuleSource interface {
	EnabledRules(ctx context.Context) ([]models.ThresholdRule, error)
}

// Sink receives alert events. Emit is fire-and-forget; delivery failures are
// the sink's concern.
type Sink interface {
	Emit(ctx context.Context, event models.AlertEvent)
}

// Scheduler gates periodic threshold checks. It owns only the running flag;
// the timer that calls OnTick belongs to the host (see package schedule).
type Scheduler struct {
	metrics MetricSource
	rules   RuleSource
	sink    Sink
	now     func() time.Time

	// toggle orders flag changes with their gauge updates
	toggle  sync.Mutex
	running atomic.Bool
}

// Config holds scheduler collaborators
type Config struct {
	Metrics MetricSource
	Rules   RuleSource
	Sink    Sink
	// Clock used to timestamp events; time.Now when nil
	Now func() time.Time
}

// NewScheduler creates a stopped scheduler
func NewScheduler(cfg Config) *Scheduler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		metrics: cfg.Metrics,
		rules:   cfg.Rules,
		sink:    cfg.Sink,
		now:     now,
	}
}

// Start enables threshold checks. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.toggle.Lock()
	defer s.toggle.Unlock()

	if s.running.Swap(true) {
		return
	}
	metrics.SchedulerRunning.Set(1)
	log := logger.WithComponent("alert_scheduler")
	log.Info().Msg("alert generation started")
}

// Stop disables threshold checks. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.toggle.Lock()
	defer s.toggle.Unlock()

	if !s.running.Swap(false) {
		return
	}
	metrics.SchedulerRunning.Set(0)
	log := logger.WithComponent("alert_scheduler")
	log.Info().Msg("alert generation stopped")
}

// IsRunning reports whether threshold checks are enabled
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// OnTick runs one threshold check. It returns immediately when stopped.
// Failures and panics are logged and never escape, so a bad tick does not
// affect later ones.
func (s *Scheduler) OnTick(ctx context.Context) {
	if !s.running.Load() {
		metrics.SchedulerTicksTotal.WithLabelValues("skipped").Inc()
		return
	}

	log := logger.WithComponent("alert_scheduler")
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("threshold check panic recovered")
			metrics.PanicsRecovered.WithLabelValues("alert_scheduler").Inc()
			metrics.SchedulerTicksTotal.WithLabelValues("failed").Inc()
		}
	}()

	emitted, err := s.check(ctx)
	metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("failed to check alert thresholds")
		metrics.SchedulerTicksTotal.WithLabelValues("failed").Inc()
		return
	}

	metrics.SchedulerTicksTotal.WithLabelValues("evaluated").Inc()
	log.Debug().
		Int("alerts", emitted).
		Dur("duration", time.Since(start)).
		Msg("thresholds checked")
}

func (s *Scheduler) check(ctx context.Context) (int, error) {
	snapshot, err := s.metrics.CurrentMetrics(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch metrics: %w", err)
	}

	rules, err := s.rules.EnabledRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch rules: %w", err)
	}

	events := Evaluate(snapshot, rules, s.now())
	for _, event := range events {
		s.sink.Emit(ctx, event)
		metrics.AlertsEmittedTotal.WithLabelValues(string(event.ComponentName)).Inc()
	}
	return len(events), nil
}
