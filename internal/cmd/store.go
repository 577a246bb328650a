package cmd

import (
	"context"

	"github.com/seolens/seolens/internal/core/ratelimit"
	"github.com/seolens/seolens/internal/core/store"
)

// openStore opens the configured database and ensures the schema
// exists.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// buildRegistry constructs the rate limiter registry from the loaded
// configuration.
func buildRegistry() (*ratelimit.Registry, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRegistry(cfg.RateLimit.RegistryConfig(), cfg.RateLimit.Endpoints)
}
