package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/fulqrun/meddpicc-cli/internal/config"
)

// Open creates the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	}
	return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
}
