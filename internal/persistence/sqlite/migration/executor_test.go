package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDatabase(InMemorySQLiteConfig())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteExecutor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"migrations/001_initial_schema.sql": {Data: []byte(`
-- Description: Create spaces
CREATE TABLE spaces (id INTEGER PRIMARY KEY AUTOINCREMENT, owner TEXT NOT NULL);
CREATE INDEX idx_spaces_owner ON spaces(owner);
`)},
		"migrations/002_add_location.sql": {Data: []byte(`ALTER TABLE spaces ADD COLUMN location TEXT NOT NULL DEFAULT '';`)},
	}
	manager := NewManager(NewScanner(fsys, "migrations"), NewSQLiteExecutor(db), quietLogger())

	count, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("unexpected migration error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", count)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO spaces (owner, location) VALUES ('alice', 'Pier 4')`); err != nil {
		t.Fatalf("expected migrated schema to accept inserts, got %v", err)
	}

	again, err := manager.RunMigrations(ctx)
	if err != nil || again != 0 {
		t.Fatalf("expected second run to be a no-op, got %d (err %v)", again, err)
	}

	applied, err := NewSQLiteExecutor(db).GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("unexpected error reading versions: %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "001" || applied[1].Version != "002" {
		t.Fatalf("unexpected applied versions %+v", applied)
	}
	if applied[0].Checksum == "" {
		t.Fatalf("expected checksum to be recorded")
	}
}

func TestSQLiteExecutor_RollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	executor := NewSQLiteExecutor(db)
	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := executor.ExecuteMigration(ctx, Migration{
		Version: "001",
		Source:  "001_broken.sql",
		SQL:     "CREATE TABLE ok_table (id INTEGER); INSERT INTO missing_table VALUES (1);",
	})
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}
	if !strings.Contains(dbErr.Operation, "statement 2") {
		t.Fatalf("expected failure on statement 2, got %q", dbErr.Operation)
	}

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ok_table'`).Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ok_table to be rolled back, got %q (err %v)", name, err)
	}

	applied, err := executor.GetAppliedVersions(ctx)
	if err != nil || len(applied) != 0 {
		t.Fatalf("expected no recorded versions, got %v (err %v)", applied, err)
	}
}

func TestSQLiteConfig(t *testing.T) {
	t.Run("validates settings", func(t *testing.T) {
		cfg := DefaultSQLiteConfig("parking.db")
		if err := cfg.Validate(); err != nil {
			t.Fatalf("expected default config to be valid, got %v", err)
		}

		bad := cfg
		bad.JournalMode = "SIDEWAYS"
		if err := bad.Validate(); err == nil {
			t.Fatalf("expected invalid journal mode to fail")
		}
		bad = cfg
		bad.DSN = " "
		if err := bad.Validate(); err == nil {
			t.Fatalf("expected empty DSN to fail")
		}
	})

	t.Run("renders pragmas into the driver DSN", func(t *testing.T) {
		dsn := DefaultSQLiteConfig("data/parking.db").DriverDSN()
		for _, fragment := range []string{"data/parking.db?", "foreign_keys%281%29", "journal_mode%28WAL%29", "_txlock=immediate"} {
			if !strings.Contains(dsn, fragment) {
				t.Fatalf("expected %q in %q", fragment, dsn)
			}
		}
		if strings.Contains(InMemorySQLiteConfig().DriverDSN(), "_txlock") {
			t.Fatalf("expected in-memory DSN to skip txlock")
		}
	})

	t.Run("creates the database directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "parking.db")
		db, err := OpenDatabase(DefaultSQLiteConfig(path))
		if err != nil {
			t.Fatalf("expected file database to open, got %v", err)
		}
		db.Close()
	})
}
