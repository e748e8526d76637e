package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"sentinel/internal/apperr"
)

// Config holds runtime configuration for the agent.
type Config struct {
	LogLevel string `env:"LOG_LEVEL"`
	// Admin HTTP listen address
	HTTPAddr string `env:"HTTP_ADDR"`
	// Node identifier stamped on alert envelopes; hostname when empty
	NodeID string `env:"NODE_ID"`

	Alerts   AlertsConfig
	Command  CommandConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// AlertsConfig controls the threshold scheduler and its rule/metric sources.
type AlertsConfig struct {
	// Delay between the end of one tick and the start of the next
	Interval time.Duration `env:"ALERT_INTERVAL"`
	// Optional cron spec ("@every 30s", "*/30 * * * * *"); replaces the fixed-delay loop when set
	Schedule  string `env:"ALERT_SCHEDULE"`
	AutoStart bool   `env:"ALERT_AUTOSTART"`
	// YAML file with threshold rules
	RulesFile string `env:"ALERT_RULES_FILE"`
	// Redis hash holding threshold rules; used when REDIS_ADDR is set
	RulesRedisKey string `env:"ALERT_RULES_REDIS_KEY"`
	// Filesystem path whose usage is reported as Disk
	DiskPath   string        `env:"DISK_PATH"`
	QueueSize  int           `env:"ALERT_QUEUE_SIZE"`
	Workers    int           `env:"ALERT_WORKERS"`
	BatchSize  int           `env:"ALERT_BATCH_SIZE"`
	BatchDelay time.Duration `env:"ALERT_BATCH_TIMEOUT"`
}

// CommandConfig controls the command runner.
type CommandConfig struct {
	DefaultTimeout      time.Duration `env:"COMMAND_TIMEOUT"`
	HeavyProcessLimit   int           `env:"HEAVY_PROCESS_LIMIT"`
	AvailabilityTimeout time.Duration `env:"COMMAND_AVAILABILITY_TIMEOUT"`
}

// DatabaseConfig controls the connectivity probe.
type DatabaseConfig struct {
	LoginTimeout time.Duration `env:"DB_LOGIN_TIMEOUT"`
}

// RedisConfig holds the optional Redis connection used as a rule source.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

// KafkaConfig holds the optional Kafka connection used to deliver alerts.
type KafkaConfig struct {
	Brokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic    string   `env:"KAFKA_TOPIC"`
	Producer ProducerConfig
}

// ProducerConfig tunes the Kafka writer.
type ProducerConfig struct {
	BatchSize    int           `env:"KAFKA_BATCH_SIZE"`
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT"`
	RequiredAcks int           `env:"KAFKA_REQUIRED_ACKS"`
	Compression  string        `env:"KAFKA_COMPRESSION"`
	MaxRetries   int           `env:"KAFKA_MAX_RETRIES"`
	RetryBackoff time.Duration `env:"KAFKA_RETRY_BACKOFF"`
}

// Default returns a sensible default config for local dev.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTPAddr: ":8080",
		Alerts: AlertsConfig{
			Interval:      30 * time.Second,
			RulesRedisKey: "sentinel:alert_rules",
			DiskPath:      "/",
			QueueSize:     1000,
			Workers:       2,
			BatchSize:     50,
			BatchDelay:    500 * time.Millisecond,
		},
		Command: CommandConfig{
			DefaultTimeout:      10 * time.Second,
			HeavyProcessLimit:   10,
			AvailabilityTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			LoginTimeout: 5 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "host-alerts",
			Producer: ProducerConfig{
				BatchSize:    100,
				BatchTimeout: 100 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
				RequiredAcks: 1,
				Compression:  "snappy",
				MaxRetries:   3,
				RetryBackoff: 100 * time.Millisecond,
			},
		},
	}
}

// Load builds the config from defaults, an optional .env file and the environment.
// envFile may be empty; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, "validate config", err)
	}
	return cfg, nil
}

// Validate rejects values the agent cannot run with.
func (c *Config) Validate() error {
	if c.Alerts.Interval <= 0 && c.Alerts.Schedule == "" {
		return errors.New("ALERT_INTERVAL must be positive when ALERT_SCHEDULE is unset")
	}
	if c.Command.DefaultTimeout <= 0 {
		return errors.New("COMMAND_TIMEOUT must be positive")
	}
	if c.Command.HeavyProcessLimit <= 0 {
		return errors.New("HEAVY_PROCESS_LIMIT must be positive")
	}
	if c.Database.LoginTimeout <= 0 {
		return errors.New("DB_LOGIN_TIMEOUT must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
