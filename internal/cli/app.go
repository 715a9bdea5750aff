package cli

import (
	"context"
	"errors"
	"fmt"

	"expensy/internal/backend"
	"expensy/internal/config"
	"expensy/internal/ledger"
	"expensy/internal/log"
	"expensy/internal/storage"
)

// App is an opened ledger with the configuration and logger it was opened with.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Ledger *ledger.Ledger

	store *backend.Result
}

// OpenApp opens the configured store and rehydrates the ledger from it.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := backend.Open(ctx, bc, logger)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, store.Store, ledger.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open ledger: %w", err), store.Close())
	}
	return &App{Config: cfg, Logger: logger, Ledger: l, store: store}, nil
}

// StoredKeys lists the keys in the backing store, or nil when the store
// cannot enumerate them.
func (a *App) StoredKeys(ctx context.Context) ([]string, error) {
	kl, ok := a.store.Store.(storage.KeyLister)
	if !ok {
		return nil, nil
	}
	return kl.Keys(ctx)
}

func (a *App) Close() error {
	return a.store.Close()
}
