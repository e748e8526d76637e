package schedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"sentinel/internal/logger"
)

// Cron runs named tasks on cron specs (seconds precision, descriptors such
// as "@every 30s" accepted). A firing is skipped while the previous run of
// the same task is still in progress.
type Cron struct {
	cron  *cron.Cron
	tasks map[string]cron.EntryID

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewCron creates a stopped cron runner
func NewCron() *Cron {
	l := cronLogger{log: logger.WithComponent("cron")}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		cron.WithLogger(l),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		cron:   c,
		tasks:  make(map[string]cron.EntryID),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers task under name, replacing any task with the same name
func (c *Cron) Add(name, spec string, task Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.tasks[name]; ok {
		c.cron.Remove(id)
		delete(c.tasks, name)
	}

	id, err := c.cron.AddFunc(spec, func() {
		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()
		task.OnTick(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for task %s: %w", spec, name, err)
	}

	c.tasks[name] = id
	log := logger.WithComponent("cron")
	log.Info().
		Str("task", name).
		Str("schedule", spec).
		Msg("added cron task")
	return nil
}

// Start begins firing tasks. Tasks receive a context that is cancelled when
// ctx is done or Stop is called. Starting a started runner is a no-op.
func (c *Cron) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.cron.Start()
}

// Stop halts firing and waits for running tasks to return
func (c *Cron) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	<-c.cron.Stop().Done()
	log := logger.WithComponent("cron")
	log.Info().Msg("cron stopped")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
