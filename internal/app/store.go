package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/parking-ledger/internal/config"
	"github.com/example/parking-ledger/internal/persistence"
	"github.com/example/parking-ledger/internal/persistence/memory"
	"github.com/example/parking-ledger/internal/persistence/sqlite"
	"github.com/example/parking-ledger/internal/persistence/sqlite/migration"
)

// OpenStore opens and migrates the engine selected by cfg.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	var store persistence.Store
	switch cfg.Storage {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageSQLite, "":
		sqliteCfg := migration.DefaultSQLiteConfig(cfg.SQLiteDSN)
		if cfg.SQLiteDSN == migration.InMemoryDSN {
			sqliteCfg = migration.InMemorySQLiteConfig()
		}
		storage, err := sqlite.Open(sqliteCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		store = storage
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}
	return store, nil
}
