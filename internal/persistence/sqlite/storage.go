// Package sqlite provides the SQLite persistence engine.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/parking-ledger/internal/persistence"
	"github.com/example/parking-ledger/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage combines the SQLite repositories over one connection pool.
type Storage struct {
	*SpaceRepository
	*ReservationRepository
	*ViolationRepository
	*RoleRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var _ persistence.Store = (*Storage)(nil)

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		SpaceRepository:       NewSpaceRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		ViolationRepository:   NewViolationRepository(pool),
		RoleRepository:        NewRoleRepository(pool),
		pool:                  pool,
		logger:                logger.With("component", "sqlite"),
	}, nil
}

// OpenInMemory opens and migrates a private in-memory database.
func OpenInMemory(ctx context.Context, logger *slog.Logger) (*Storage, error) {
	storage, err := Open(migration.InMemorySQLiteConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx); err != nil {
		storage.Close()
		return nil, err
	}
	return storage, nil
}

// Migrate applies the embedded schema migrations that have not run yet.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	if applied > 0 {
		s.logger.Info("schema migrated", "applied", applied)
	}
	return nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
