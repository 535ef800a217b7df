package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"citas/config"
	"citas/internal/domain/lifecycle"
	"citas/internal/errors"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	poolWatchInterval = 5 * time.Second
	poolWaitWarnAfter = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the PostgreSQL connection backing the slot stores. On start it
// pings the primary, migrates storage_slots when storage.autoMigrate is set
// and begins watching pool contention until stop.
func New(params Params) (*gorm.DB, error) {
	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	db = db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	migrate := params.Config.Storage != nil && params.Config.Storage.AutoMigrate
	watchCtx, stopWatch := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}
			if migrate {
				if err := AutoMigrate(ctx, db); err != nil {
					return err
				}
				params.Logger.Info("Slot store schema migrated")
			}

			go watchPool(watchCtx, params.Logger, sqlDB)

			return nil
		},
		OnStop: func(_ context.Context) error {
			stopWatch()

			return errors.Wrap(sqlDB.Close(), "failed to close PostgreSQL")
		},
	})

	return db, nil
}

// watchPool reports requests that had to wait for a pooled connection.
// Heavy waits mean one client's scope is holding connections too long.
func watchPool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB) {
	ticker := time.NewTicker(poolWatchInterval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur := sqlDB.Stats()
		waits := cur.WaitCount - prev.WaitCount
		waited := cur.WaitDuration - prev.WaitDuration
		prev = cur
		if waits <= 0 {
			continue
		}

		level := slog.LevelDebug
		if waited >= poolWaitWarnAfter {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "Slot store pool wait",
			slog.Int64("waits", waits),
			slog.Duration("waited", waited),
			slog.Duration("avg_wait", waited/time.Duration(waits)),
			slog.Int("open_conns", cur.OpenConnections),
			slog.Int("in_use", cur.InUse),
			slog.Int("max_open", cur.MaxOpenConnections),
		)
	}
}
