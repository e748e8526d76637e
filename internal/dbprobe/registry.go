package dbprobe

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"sentinel/internal/apperr"
)

// Registry errors
var (
	ErrUnsupportedDialect = fmt.Errorf("%w: unsupported database dialect", apperr.ErrConfiguration)
	ErrDriverNotFound     = fmt.Errorf("%w: no driver for database dialect", apperr.ErrConfiguration)
)

// URLBuilder renders the canonical connection URL for a dialect.
type URLBuilder func(host string, port int) string

// Registry maps dialect names to URL builders and client drivers. Lookups
// trim and lower-case the dialect; both tables are independently extensible.
type Registry struct {
	mu      sync.RWMutex
	urls    map[string]URLBuilder
	drivers map[string]Driver
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		urls:    make(map[string]URLBuilder),
		drivers: make(map[string]Driver),
	}
}

// DefaultRegistry returns a registry with the built-in dialects
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterURL("mysql", func(host string, port int) string {
		return fmt.Sprintf("jdbc:mysql://%s:%d?useSSL=false&serverTimezone=UTC", host, port)
	})
	r.RegisterURL("postgresql", func(host string, port int) string {
		return fmt.Sprintf("jdbc:postgresql://%s:%d/postgres", host, port)
	})
	sqlServerURL := func(host string, port int) string {
		return fmt.Sprintf("jdbc:sqlserver://%s:%d", host, port)
	}
	r.RegisterURL("sql server", sqlServerURL)
	r.RegisterURL("sqlserver", sqlServerURL)
	r.RegisterURL("oracle", func(host string, port int) string {
		return fmt.Sprintf("jdbc:oracle:thin:@%s:%d:XE", host, port)
	})
	r.RegisterURL("mongodb", func(host string, port int) string {
		return fmt.Sprintf("jdbc:mongodb://%s:%d", host, port)
	})

	r.RegisterDriver("mysql", MySQLDriver())
	r.RegisterDriver("postgresql", PostgresDriver())
	r.RegisterDriver("sql server", SQLServerDriver())
	r.RegisterDriver("sqlserver", SQLServerDriver())
	r.RegisterDriver("oracle", OracleDriver())
	r.RegisterDriver("mongodb", MongoDriver())

	return r
}

func normalize(dialect string) string {
	return strings.ToLower(strings.TrimSpace(dialect))
}

// RegisterURL adds or replaces the URL builder for dialect
func (r *Registry) RegisterURL(dialect string, b URLBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls[normalize(dialect)] = b
}

// RegisterDriver adds or replaces the client driver for dialect
func (r *Registry) RegisterDriver(dialect string, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[normalize(dialect)] = d
}

// URL resolves the connection URL for dialect at host:port
func (r *Registry) URL(dialect, host string, port int) (string, error) {
	r.mu.RLock()
	b, ok := r.urls[normalize(dialect)]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	return b(host, port), nil
}

// Driver resolves the client driver for dialect
func (r *Registry) Driver(dialect string) (Driver, error) {
	r.mu.RLock()
	d, ok := r.drivers[normalize(dialect)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDriverNotFound, dialect)
	}
	return d, nil
}

// Dialects lists dialects that have both a URL builder and a driver
func (r *Registry) Dialects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for name := range r.urls {
		if _, ok := r.drivers[name]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
