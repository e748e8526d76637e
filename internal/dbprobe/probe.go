package dbprobe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinel/internal/apperr"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/models"
)

// Probe failure stages
const (
	StageConnection = "connection"
	StageValidation = "validation"
)

// unsupportedLabel is the metrics dialect label for unregistered dialects
const unsupportedLabel = "unsupported"

// ProbeError reports a failed connection or validation attempt.
type ProbeError struct {
	Stage   string
	Dialect string
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Dialect, e.Stage, e.Err)
}

// Unwrap classifies the failure as a timeout when the login bound expired
func (e *ProbeError) Unwrap() []error {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return []error{apperr.ErrTimeout, e.Err}
	}
	return []error{apperr.ErrExecution, e.Err}
}

// Prober checks reachability and authentication of external databases
// without running application queries.
type Prober struct {
	registry     *Registry
	loginTimeout time.Duration
}

// Config holds prober configuration
type Config struct {
	// Dialect registry; DefaultRegistry() when nil
	Registry     *Registry
	LoginTimeout time.Duration
}

// NewProber creates a prober
func NewProber(cfg Config) *Prober {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 5 * time.Second
	}
	return &Prober{registry: cfg.Registry, loginTimeout: cfg.LoginTimeout}
}

// Registry exposes the dialect registry for extension
func (p *Prober) Registry() *Registry { return p.registry }

// TestConnection reports whether target accepts a login within the login
// timeout. Failures are logged with their kind and never returned.
func (p *Prober) TestConnection(ctx context.Context, target models.DatabaseTarget) bool {
	_, err := p.Probe(ctx, target)
	return err == nil
}

// Probe resolves the dialect URL and driver, opens one connection and
// validates it, all within the login timeout. It returns the resolved URL
// alongside any failure. The connection is always closed before returning.
func (p *Prober) Probe(ctx context.Context, target models.DatabaseTarget) (string, error) {
	log := logger.WithComponent("db_probe").With().
		Str("dialect", target.Dialect).
		Str("database", target.Name).
		Logger()
	// Only registered dialects become label values; callers choose the dialect string.
	dialect := unsupportedLabel
	start := time.Now()
	defer func() {
		metrics.DBProbeDuration.WithLabelValues(dialect).Observe(time.Since(start).Seconds())
	}()

	url, err := p.registry.URL(target.Dialect, target.Host, target.Port)
	if err != nil {
		log.Error().Err(err).Str("error_kind", "unsupported_dialect").Msg("cannot build connection url")
		metrics.DBProbesTotal.WithLabelValues(dialect, "unsupported_dialect").Inc()
		return "", err
	}
	dialect = normalize(target.Dialect)

	driver, err := p.registry.Driver(target.Dialect)
	if err != nil {
		log.Error().Err(err).Str("error_kind", "driver_not_found").Msg("database driver not found")
		metrics.DBProbesTotal.WithLabelValues(dialect, "driver_not_found").Inc()
		return url, err
	}

	if err := target.Validate(); err != nil {
		log.Error().Err(err).Str("error_kind", "invalid_target").Msg("invalid database target")
		metrics.DBProbesTotal.WithLabelValues(dialect, "invalid_target").Inc()
		return url, apperr.Wrap(apperr.ErrConfiguration, "validate target", err)
	}

	// The login bound is armed before the attempt starts and covers validation too.
	ctx, cancel := context.WithTimeout(ctx, p.loginTimeout)
	defer cancel()

	log.Info().Str("url", url).Str("driver", driver.Name()).Msg("testing database connection")

	conn, err := driver.Open(ctx, target, p.loginTimeout)
	if err != nil {
		perr := &ProbeError{Stage: StageConnection, Dialect: dialect, Err: err}
		log.Error().Err(err).Str("error_kind", StageConnection).Str("url", url).Msg("database connection failed")
		metrics.DBProbesTotal.WithLabelValues(dialect, StageConnection).Inc()
		return url, perr
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database connection")
		}
	}()

	if err := conn.Ping(ctx); err != nil {
		perr := &ProbeError{Stage: StageValidation, Dialect: dialect, Err: err}
		log.Error().Err(err).Str("error_kind", StageValidation).Str("url", url).Msg("database connection is not valid")
		metrics.DBProbesTotal.WithLabelValues(dialect, StageValidation).Inc()
		return url, perr
	}

	log.Info().Str("url", url).Dur("duration", time.Since(start)).Msg("database connection ok")
	metrics.DBProbesTotal.WithLabelValues(dialect, "connected").Inc()
	return url, nil
}
