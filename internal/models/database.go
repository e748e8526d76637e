package models

import (
	"errors"
	"fmt"
)

// DatabaseTarget describes an external database to probe. Not persisted.
type DatabaseTarget struct {
	Dialect  string `json:"dialect"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validation errors
var (
	ErrEmptyHost   = errors.New("database host cannot be empty")
	ErrInvalidPort = errors.New("database port must be between 1 and 65535")
)

// Validate checks the address fields needed to build a connection URL
func (t DatabaseTarget) Validate() error {
	if t.Host == "" {
		return ErrEmptyHost
	}
	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, t.Port)
	}
	return nil
}

// String omits the password so targets can be logged.
func (t DatabaseTarget) String() string {
	return fmt.Sprintf("%s://%s@%s:%d (%s)", t.Dialect, t.Username, t.Host, t.Port, t.Name)
}
