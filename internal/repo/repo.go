package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/userhub/internal/cache"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/db"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/repo/cached"
	"github.com/geocoder89/userhub/internal/repo/memory"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/repo/sqlite"
)

type Options struct {
	Observer     postgres.Observer
	Cache        cache.Backend // nil disables the read-through cache
	CacheMetrics cached.Metrics
	Log          *slog.Logger
}

// Open builds the user store named by cfg.StorageDriver. The returned close
// func releases the underlying connection and is never nil.
func Open(ctx context.Context, cfg config.Config, opts Options) (user.Store, func(), error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	var (
		store   user.Store
		closeFn = func() {}
	)

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		if cfg.RunMigrations {
			if err := postgres.ApplyMigrations(ctx, cfg.DBURL); err != nil {
				return nil, closeFn, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, closeFn, fmt.Errorf("connect postgres: %w", err)
		}
		store = postgres.NewUsersRepo(pool, opts.Observer)
		closeFn = pool.Close

	case config.DriverSQLite:
		d, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open sqlite: %w", err)
		}
		store = sqlite.NewUsersRepo(d, opts.Observer)
		closeFn = func() { _ = d.Close() }

	case config.DriverMemory:
		store = memory.NewUsersRepo()

	default:
		return nil, closeFn, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	log.Info("user store ready", "driver", cfg.StorageDriver, "cached", opts.Cache != nil)

	if opts.Cache != nil {
		store = cached.NewUsersRepo(store, opts.Cache, log).WithMetrics(opts.CacheMetrics)
	}

	return store, closeFn, nil
}
