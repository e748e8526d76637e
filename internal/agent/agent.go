package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentinel/internal/alerts"
	"sentinel/internal/command"
	"sentinel/internal/config"
	"sentinel/internal/dbprobe"
	"sentinel/internal/handlers"
	"sentinel/internal/kafka"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/middleware"
	"sentinel/internal/models"
	"sentinel/internal/schedule"
	"sentinel/internal/sinks"
	"sentinel/internal/sources"
	"sentinel/internal/worker"
)

const thresholdTask = "threshold-check"

// Agent wires the monitoring components together and owns their lifecycle.
type Agent struct {
	cfg  *config.Config
	node string

	metricSource alerts.MetricSource
	ruleSource   alerts.RuleSource

	scheduler *alerts.Scheduler
	ticker    schedule.Runner
	runner    *command.Runner
	prober    *dbprobe.Prober

	redis    *redis.Client
	producer *kafka.Producer
	pool     *worker.Pool
	queue    chan *models.Envelope

	handler    http.Handler
	httpServer *http.Server
	addr       chan net.Addr
	wg         sync.WaitGroup
}

// Option customises an Agent
type Option func(*Agent)

// WithMetricSource replaces the host metric collector
func WithMetricSource(m alerts.MetricSource) Option {
	return func(a *Agent) { a.metricSource = m }
}

// WithRuleSource replaces the configured rule source
func WithRuleSource(r alerts.RuleSource) Option {
	return func(a *Agent) { a.ruleSource = r }
}

// New builds an agent from cfg. It does not open network connections.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	log := logger.WithComponent("agent")

	node := cfg.NodeID
	if node == "" {
		node, _ = os.Hostname()
		if node == "" {
			node = "unknown"
		}
	}

	a := &Agent{cfg: cfg, node: node, addr: make(chan net.Addr, 1)}
	for _, opt := range opts {
		opt(a)
	}

	if a.metricSource == nil {
		a.metricSource = sources.NewHostMetrics(cfg.Alerts.DiskPath)
	}
	if a.ruleSource == nil {
		a.ruleSource = a.newRuleSource()
	}

	sink, err := a.initDelivery()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize alert delivery: %w", err)
	}

	a.scheduler = alerts.NewScheduler(alerts.Config{
		Metrics: a.metricSource,
		Rules:   a.ruleSource,
		Sink:    sink,
	})

	if err := a.initTicker(); err != nil {
		return nil, err
	}

	a.runner = command.NewRunner(command.Config{
		DefaultTimeout:      cfg.Command.DefaultTimeout,
		HeavyProcessLimit:   cfg.Command.HeavyProcessLimit,
		AvailabilityTimeout: cfg.Command.AvailabilityTimeout,
	})
	a.prober = dbprobe.NewProber(dbprobe.Config{LoginTimeout: cfg.Database.LoginTimeout})

	a.handler = a.routes()

	log.Info().
		Str("node", node).
		Bool("kafka", a.producer != nil).
		Bool("redis", a.redis != nil).
		Msg("agent initialized")
	return a, nil
}

// newRuleSource picks Redis, then a YAML file, then an empty set
func (a *Agent) newRuleSource() alerts.RuleSource {
	log := logger.WithComponent("agent")

	switch {
	case a.cfg.Redis.Addr != "":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		log.Info().Str("addr", a.cfg.Redis.Addr).Str("key", a.cfg.Alerts.RulesRedisKey).Msg("reading rules from redis")
		return sources.NewRedisRules(a.redis, a.cfg.Alerts.RulesRedisKey)
	case a.cfg.Alerts.RulesFile != "":
		log.Info().Str("file", a.cfg.Alerts.RulesFile).Msg("reading rules from file")
		return sources.NewFileRules(a.cfg.Alerts.RulesFile)
	default:
		log.Warn().Msg("no rule source configured, no alerts will fire")
		return sources.StaticRules(nil)
	}
}

// initDelivery always logs alerts and, with Kafka configured, also queues
// them for the worker pool
func (a *Agent) initDelivery() (alerts.Sink, error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		return sinks.LogSink{}, nil
	}

	producer, err := kafka.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, a.cfg.Kafka.Producer)
	if err != nil {
		return nil, err
	}
	a.producer = producer
	a.queue = make(chan *models.Envelope, a.cfg.Alerts.QueueSize)
	a.pool = worker.NewPool(worker.Config{
		Publisher:    producer,
		Queue:        a.queue,
		Workers:      a.cfg.Alerts.Workers,
		BatchSize:    a.cfg.Alerts.BatchSize,
		BatchTimeout: a.cfg.Alerts.BatchDelay,
	})
	metrics.WorkerQueueCapacity.Set(float64(cap(a.queue)))

	log := logger.WithComponent("agent")
	log.Info().
		Strs("brokers", a.cfg.Kafka.Brokers).
		Str("topic", a.cfg.Kafka.Topic).
		Msg("kafka alert delivery enabled")

	return sinks.FanOut{sinks.LogSink{}, sinks.NewQueueSink(a.queue, a.node)}, nil
}

// initTicker chooses the cron runner when a schedule is configured and the
// fixed-delay loop otherwise
func (a *Agent) initTicker() error {
	if a.cfg.Alerts.Schedule == "" {
		a.ticker = schedule.NewFixedDelay(thresholdTask, a.scheduler, a.cfg.Alerts.Interval)
		return nil
	}

	c := schedule.NewCron()
	if err := c.Add(thresholdTask, a.cfg.Alerts.Schedule, a.scheduler); err != nil {
		return err
	}
	a.ticker = c
	return nil
}

// routes builds the admin HTTP handler
func (a *Agent) routes() http.Handler {
	mux := http.NewServeMux()

	handlers.NewAdmin(handlers.AdminConfig{
		Scheduler: a.scheduler,
		Commands:  a.runner,
		Databases: a.prober,
		Rules:     a.ruleSource,
	}).Register(mux)

	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /stats", a.statsHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recovery,
	)
}

// Handler returns the admin HTTP handler
func (a *Agent) Handler() http.Handler { return a.handler }

// Scheduler returns the alert scheduler
func (a *Agent) Scheduler() *alerts.Scheduler { return a.scheduler }

// Addr blocks until the HTTP server is listening and returns its address
func (a *Agent) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-a.addr:
		a.addr <- addr
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts background components and blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	log := logger.WithComponent("agent")
	log.Info().Msg("agent starting")

	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTPAddr, err)
	}
	a.addr <- ln.Addr()

	if a.pool != nil {
		a.pool.Start()
	}

	a.ticker.Start(ctx)
	if a.cfg.Alerts.AutoStart {
		a.scheduler.Start()
	}

	a.httpServer = &http.Server{
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Info().Str("addr", ln.Addr().String()).Msg("starting HTTP server")
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reportStats(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return a.shutdown()
}

// shutdown stops components in dependency order
func (a *Agent) shutdown() error {
	log := logger.WithComponent("agent")
	log.Info().Msg("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Waits for an in-flight tick, so nothing emits after this point.
	a.ticker.Stop()
	a.scheduler.Stop()

	if a.pool != nil {
		close(a.queue)
		done := make(chan struct{})
		go func() {
			a.pool.Stop()
			close(done)
		}()
		select {
		case <-done:
			log.Info().Msg("alert workers stopped")
		case <-time.After(15 * time.Second):
			log.Warn().Msg("alert worker shutdown timeout, pending alerts may be lost")
		}

		if err := a.producer.Close(); err != nil {
			log.Error().Err(err).Msg("kafka producer close error")
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error().Err(err).Msg("redis close error")
		}
	}

	a.wg.Wait()
	log.Info().Msg("agent stopped gracefully")
	return nil
}

// reportStats periodically logs delivery statistics
func (a *Agent) reportStats(ctx context.Context) {
	log := logger.WithComponent("agent")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := a.stats()
			if a.queue != nil {
				metrics.WorkerQueueSize.Set(float64(len(a.queue)))
			}
			log.Info().
				Bool("scheduler_running", s.SchedulerRunning).
				Uint64("worker_processed", s.Worker.Processed).
				Uint64("worker_failed", s.Worker.Failed).
				Uint64("producer_sent", s.Producer.MessagesSent).
				Uint64("producer_failed", s.Producer.MessagesFailed).
				Int("queue_size", s.Queue.Buffered).
				Msg("stats")
		}
	}
}

type queueStats struct {
	Buffered int `json:"buffered"`
	Capacity int `json:"capacity"`
}

type agentStats struct {
	SchedulerRunning bool                `json:"scheduler_running"`
	Worker           worker.Stats        `json:"worker"`
	Producer         kafka.ProducerStats `json:"producer"`
	Queue            queueStats          `json:"queue"`
}

func (a *Agent) stats() agentStats {
	s := agentStats{SchedulerRunning: a.scheduler.IsRunning()}
	if a.pool != nil {
		s.Worker = a.pool.Stats()
		s.Producer = a.producer.Stats()
		s.Queue = queueStats{Buffered: len(a.queue), Capacity: cap(a.queue)}
	}
	return s
}

// healthHandler reports the reachability of the optional backends
func (a *Agent) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if a.producer != nil {
		if err := a.producer.HealthCheck(ctx); err != nil {
			checks["kafka"] = err.Error()
			healthy = false
		} else {
			checks["kafka"] = "ok"
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// statsHandler returns current statistics
func (a *Agent) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(a.stats())
}
