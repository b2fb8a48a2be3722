package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/parking-ledger/internal/persistence"
	"github.com/example/parking-ledger/internal/persistence/memory"
	"github.com/example/parking-ledger/internal/persistence/sqlite"
	"github.com/example/parking-ledger/internal/persistence/sqlite/migration"
)

// Engine names a persistence engine exercised by harness-driven tests.
type Engine string

const (
	EngineMemory Engine = "memory"
	EngineSQLite Engine = "sqlite"
)

// Engines lists every engine so contract tests can range over them.
func Engines() []Engine {
	return []Engine{EngineMemory, EngineSQLite}
}

// QuietLogger discards everything it is given.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore opens a migrated store for engine. The store is closed when the test ends.
func NewStore(tb testing.TB, engine Engine) persistence.Store {
	tb.Helper()

	switch engine {
	case EngineMemory:
		return memory.New()
	case EngineSQLite:
		return NewSQLiteStore(tb)
	default:
		tb.Fatalf("unknown engine %q", engine)
		return nil
	}
}

// NewSQLiteStore opens a SQLite store in a temporary file that is migrated
// automatically and closed through tb.Cleanup.
func NewSQLiteStore(tb testing.TB) *sqlite.Storage {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "parking.db")
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(path), QuietLogger())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	tb.Cleanup(func() {
		_ = storage.Close()
	})
	return storage
}
