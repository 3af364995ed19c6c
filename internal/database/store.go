package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/repository"
)

// NewRecordStore opens the backend selected by STORE_DRIVER.
func NewRecordStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.SQLStore, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory record store; data is lost on restart")
		return repository.NewMemoryStore(), nil

	case config.StoreSQLite:
		db, err := NewSQLiteDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil

	case config.StorePostgres:
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil

	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}
