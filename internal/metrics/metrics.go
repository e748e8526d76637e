package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "Total number of admin HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_http_request_duration_seconds",
			Help:    "Admin HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Scheduler metrics
	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_alert_scheduler_running",
			Help: "1 when threshold checks are enabled, 0 otherwise",
		},
	)

	SchedulerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alert_ticks_total",
			Help: "Total number of scheduler ticks",
		},
		[]string{"outcome"}, // outcome: skipped, evaluated, failed
	)

	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_alert_tick_duration_seconds",
			Help:    "Time taken by one threshold check",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_emitted_total",
			Help: "Total number of threshold breaches emitted",
		},
		[]string{"component"},
	)

	AlertsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_dropped_total",
			Help: "Alerts dropped because the delivery queue was full",
		},
	)

	// Command runner metrics
	CommandRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_command_runs_total",
			Help: "Total number of shell command executions",
		},
		[]string{"outcome"}, // outcome: success, exit_error, timeout, io_error, interrupted, unavailable
	)

	CommandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_command_duration_seconds",
			Help:    "Wall-clock duration of shell command executions",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Database probe metrics
	DBProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_db_probes_total",
			Help: "Total number of database connectivity probes",
		},
		[]string{"dialect", "outcome"}, // outcome: connected, unsupported_dialect, driver_not_found, connection, validation
	)

	DBProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_db_probe_duration_seconds",
			Help:    "Time taken by database connectivity probes",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"dialect"},
	)

	// Alert delivery metrics
	WorkerQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_alert_queue_size",
			Help: "Current size of the alert delivery queue",
		},
	)

	WorkerQueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_alert_queue_capacity",
			Help: "Capacity of the alert delivery queue",
		},
	)

	WorkerProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_worker_processed_total",
			Help: "Total number of alert envelopes delivered by workers",
		},
	)

	WorkerFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_worker_failed_total",
			Help: "Total number of alert envelopes workers failed to deliver",
		},
	)

	WorkerBatchPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_worker_batch_publish_duration_seconds",
			Help:    "Time taken to publish a batch of alerts",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Kafka publisher metrics
	KafkaPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_kafka_publish_total",
			Help: "Total number of alert messages published to Kafka",
		},
		[]string{"status"}, // status: success, failed
	)

	KafkaPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_kafka_publish_retries_total",
			Help: "Total number of Kafka publish retries",
		},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
