// Package storage selects the backend of the per-client slot stores.
package storage

import (
	"log/slog"

	"citas/config"
	"citas/internal/domain/repository"
	"citas/internal/errors"
	"citas/internal/infra/persistence/postgres"
	"citas/internal/infra/storage/memory"

	"go.uber.org/fx"
)

// Storage drivers accepted in storage.driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Params holds dependencies for the slot store provider
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// NewSlotStoreProvider builds the slot store backend named by storage.driver.
// The postgres connection is opened only when that driver is selected.
func NewSlotStoreProvider(params Params) (repository.SlotStoreProvider, error) {
	driver := params.Config.Storage.Driver

	switch driver {
	case DriverMemory:
		params.Logger.Warn("Using in-memory slot store, client state does not survive restarts")

		return memory.NewSlotStoreProvider(), nil
	case DriverPostgres:
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return nil, err
		}

		return postgres.NewSlotStoreProvider(db, params.Logger), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}
