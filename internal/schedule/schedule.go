// Package schedule provides the repeating-task substrates that drive the
// alert scheduler. Both substrates prevent a slow tick from overlapping the
// next one: FixedDelay arms the next tick only after the previous returns,
// Cron skips a firing while the previous job is still running.
package schedule

import (
	"context"
	"sync"
	"time"

	"sentinel/internal/logger"
)

// Task is invoked once per tick.
type Task interface {
	OnTick(ctx context.Context)
}

// TaskFunc adapts a function to Task
type TaskFunc func(ctx context.Context)

// OnTick calls f(ctx)
func (f TaskFunc) OnTick(ctx context.Context) { f(ctx) }

// Runner owns a cancellable repeating task.
type Runner interface {
	Start(ctx context.Context)
	Stop()
}

// FixedDelay runs a task repeatedly, waiting delay between the end of one
// run and the start of the next.
type FixedDelay struct {
	name  string
	task  Task
	delay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFixedDelay creates a stopped fixed-delay runner
func NewFixedDelay(name string, task Task, delay time.Duration) *FixedDelay {
	return &FixedDelay{name: name, task: task, delay: delay}
}

// Start launches the loop. The first run happens after one delay.
// Starting a started runner is a no-op.
func (f *FixedDelay) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	log := logger.WithComponent("schedule")
	log.Info().
		Str("task", f.name).
		Dur("delay", f.delay).
		Msg("fixed-delay task started")

	go f.loop(ctx, f.done)
}

// Stop cancels the loop and waits for an in-flight run to return.
func (f *FixedDelay) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	log := logger.WithComponent("schedule")
	log.Info().Str("task", f.name).Msg("fixed-delay task stopped")
}

func (f *FixedDelay) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			f.task.OnTick(ctx)
			timer.Reset(f.delay)
		}
	}
}
