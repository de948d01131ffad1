package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fasaldhan/fasaldhan-cli/internal/estimator"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "fasaldhan.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEngine selects the estimation engine. When disabled by config the
// API keeps serving estimate endpoints with fixed unavailable results.
func initEngine(st store.Store) estimator.Engine {
	if !cfg.Engine.Enabled {
		return estimator.Unavailable{}
	}
	return estimator.NewService(st, cfg.Risk)
}
