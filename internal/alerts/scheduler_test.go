package alerts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/metrics"
	"sentinel/internal/models"
)

type fakeMetrics struct {
	calls    atomic.Int32
	snapshot models.MetricSnapshot
	err      error
	panicMsg string
}

func (f *fakeMetrics) CurrentMetrics(ctx context.Context) (models.MetricSnapshot, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.snapshot, f.err
}

type fakeRules struct {
	calls atomic.Int32
	rules []models.ThresholdRule
	err   error
}

func (f *fakeRules) EnabledRules(ctx context.Context) ([]models.ThresholdRule, error) {
	f.calls.Add(1)
	return f.rules, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (r *recordingSink) Emit(ctx context.Context, event models.AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) Events() []models.AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AlertEvent(nil), r.events...)
}

func newTestScheduler(m *fakeMetrics, r *fakeRules, sink *recordingSink) *Scheduler {
	return NewScheduler(Config{
		Metrics: m,
		Rules:   r,
		Sink:    sink,
		Now:     func() time.Time { return at },
	})
}

func TestScheduler_StartsStopped(t *testing.T) {
	s := newTestScheduler(&fakeMetrics{}, &fakeRules{}, &recordingSink{})
	assert.False(t, s.IsRunning())
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := newTestScheduler(&fakeMetrics{}, &fakeRules{}, &recordingSink{})

	s.Stop()
	assert.False(t, s.IsRunning())

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_TickWhileStoppedTouchesNothing(t *testing.T) {
	m := &fakeMetrics{}
	r := &fakeRules{}
	sink := &recordingSink{}
	s := newTestScheduler(m, r, sink)

	s.OnTick(context.Background())

	assert.Zero(t, m.calls.Load())
	assert.Zero(t, r.calls.Load())
	assert.Empty(t, sink.Events())
}

func TestScheduler_TickEmitsBreaches(t *testing.T) {
	m := &fakeMetrics{snapshot: models.MetricSnapshot{CPUUsage: 80, MemoryUsage: 20, DiskUsage: 50}}
	r := &fakeRules{rules: []models.ThresholdRule{
		{ComponentName: models.ComponentCPU, ThresholdValue: 80, Enabled: true},
		{ComponentName: models.ComponentMemory, ThresholdValue: 80, Enabled: true},
	}}
	sink := &recordingSink{}
	s := newTestScheduler(m, r, sink)
	s.Start()

	s.OnTick(context.Background())

	require.Len(t, sink.Events(), 1)
	assert.Equal(t, models.AlertEvent{
		ComponentName:  models.ComponentCPU,
		CurrentValue:   80,
		ThresholdValue: 80,
		Timestamp:      at,
	}, sink.Events()[0])
	assert.EqualValues(t, 1, m.calls.Load())
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestScheduler_MetricFailureIsContained(t *testing.T) {
	m := &fakeMetrics{err: errors.New("collector offline")}
	r := &fakeRules{}
	sink := &recordingSink{}
	s := newTestScheduler(m, r, sink)
	s.Start()

	assert.NotPanics(t, func() { s.OnTick(context.Background()) })
	assert.Zero(t, r.calls.Load())
	assert.Empty(t, sink.Events())
	assert.True(t, s.IsRunning())

	// next tick proceeds normally once the source recovers
	m.err = nil
	m.snapshot = models.MetricSnapshot{DiskUsage: 95}
	r.rules = []models.ThresholdRule{{ComponentName: models.ComponentDisk, ThresholdValue: 90, Enabled: true}}
	s.OnTick(context.Background())
	assert.Len(t, sink.Events(), 1)
}

func TestScheduler_RuleFailureIsContained(t *testing.T) {
	m := &fakeMetrics{snapshot: models.MetricSnapshot{CPUUsage: 100}}
	r := &fakeRules{err: errors.New("store unavailable")}
	sink := &recordingSink{}
	s := newTestScheduler(m, r, sink)
	s.Start()

	s.OnTick(context.Background())

	assert.Empty(t, sink.Events())
	assert.True(t, s.IsRunning())
}

func TestScheduler_PanicIsContained(t *testing.T) {
	m := &fakeMetrics{panicMsg: "boom"}
	s := newTestScheduler(m, &fakeRules{}, &recordingSink{})
	s.Start()

	assert.NotPanics(t, func() { s.OnTick(context.Background()) })
	assert.True(t, s.IsRunning())
}

func TestScheduler_ConcurrentToggleAndTick(t *testing.T) {
	m := &fakeMetrics{snapshot: models.MetricSnapshot{CPUUsage: 1}}
	s := newTestScheduler(m, &fakeRules{}, &recordingSink{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); s.Start() }()
		go func() { defer wg.Done(); s.Stop() }()
		go func() { defer wg.Done(); s.OnTick(context.Background()) }()
	}
	wg.Wait()

	s.Start()
	assert.True(t, s.IsRunning())
}

func TestScheduler_RunningGaugeTracksFlag(t *testing.T) {
	s := newTestScheduler(&fakeMetrics{}, &fakeRules{}, &recordingSink{})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.Start()
			} else {
				s.Stop()
			}
		}(i)
	}
	wg.Wait()

	want := 0.0
	if s.IsRunning() {
		want = 1
	}
	assert.Equal(t, want, testutil.ToFloat64(metrics.SchedulerRunning))

	s.Start()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SchedulerRunning))
	s.Stop()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SchedulerRunning))
}
