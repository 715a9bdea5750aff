// Package backend builds the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"expensy/internal/config"
	"expensy/internal/log"
	"expensy/internal/storage"
	"expensy/internal/storage/memory"
)

// Type represents the type of backend
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	}
	return false
}

// Types returns all valid backend type strings.
func Types() []string {
	return []string{SQLite.String(), Memory.String()}
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result contains the store and optional cleanup function
type Result struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Config holds configuration for backend creation
type Config struct {
	Type         Type
	SQLiteDBPath string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Type:         Type(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	if c.Type == SQLite && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Open creates the store described by c.
func Open(_ context.Context, c Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBackend)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Type {
	case SQLite:
		s, err := storage.NewSQLiteStore(c.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", c.SQLiteDBPath)
		return &Result{Store: s, Cleanup: s.Close}, nil
	default:
		logger.Warn("Initialized memory backend, data is lost on exit")
		return &Result{Store: memory.New()}, nil
	}
}

// Close runs the cleanup function if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
