package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/parking-ledger/internal/persistence"
	"github.com/example/parking-ledger/internal/persistence/sqlite/migration"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()
	pool, err := NewConnectionPool(migration.DefaultSQLiteConfig(filepath.Join(t.TempDir(), "pool.db")))
	if err != nil {
		t.Fatalf("NewConnectionPool returned error: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	_, err = pool.DB().Exec(`CREATE TABLE bays (
		id INTEGER PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		rate INTEGER NOT NULL CHECK (rate >= 0)
	)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return pool
}

func TestErrorMapper(t *testing.T) {
	pool := newTestPool(t)
	helper := NewQueryHelper(pool)
	mapper := NewErrorMapper()
	ctx := context.Background()

	if _, err := helper.Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('A1', 5)`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	_, err := helper.Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('A1', 5)`)
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", mapped)
	}

	_, err = helper.Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('B1', -1)`)
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for CHECK, got %v", mapped)
	}

	_, err = helper.Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('C1', NULL)`)
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for NOT NULL, got %v", mapped)
	}

	var code string
	err = helper.QueryRow(ctx, `SELECT code FROM bays WHERE id = 99`).Scan(&code)
	if mapped := mapper.MapError(err); !errors.Is(mapped, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", mapped)
	}

	if mapper.MapError(nil) != nil {
		t.Fatalf("expected nil to map to nil")
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	pool := newTestPool(t)
	helper := NewQueryHelper(pool)
	ctx := context.Background()
	boom := errors.New("boom")

	err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := helper.Tx(tx).Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('A1', 5)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected the panic to propagate")
			}
		}()
		_ = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, _ = helper.Tx(tx).Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('B1', 5)`)
			panic("boom")
		})
	}()

	var count int
	if err := helper.QueryRow(ctx, `SELECT COUNT(*) FROM bays`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rolled back transactions to leave no rows, got %d", count)
	}

	err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := helper.Tx(tx).Exec(ctx, `INSERT INTO bays (code, rate) VALUES ('C1', 5)`)
		return err
	})
	if err != nil {
		t.Fatalf("expected commit, got %v", err)
	}
	if err := helper.QueryRow(ctx, `SELECT COUNT(*) FROM bays`).Scan(&count); err != nil || count != 1 {
		t.Fatalf("expected one committed row, got %d (%v)", count, err)
	}
}

func TestRetryHelper(t *testing.T) {
	retry := NewRetryHelper(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2})
	ctx := context.Background()

	t.Run("retries busy errors until success", func(t *testing.T) {
		attempts := 0
		err := retry.WithRetry(ctx, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil || attempts != 3 {
			t.Fatalf("expected success on third attempt, got %v after %d", err, attempts)
		}
	})

	t.Run("gives up after the configured retries", func(t *testing.T) {
		attempts := 0
		err := retry.WithRetry(ctx, func() error {
			attempts++
			return errors.New("database is locked")
		})
		if err == nil || attempts != 3 {
			t.Fatalf("expected failure after 3 attempts, got %v after %d", err, attempts)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		err := retry.WithRetry(ctx, func() error {
			attempts++
			return sql.ErrNoRows
		})
		if !errors.Is(err, persistence.ErrNotFound) || attempts != 1 {
			t.Fatalf("expected a single mapped ErrNotFound, got %v after %d", err, attempts)
		}
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := retry.WithRetry(cancelled, func() error {
			return errors.New("database is locked")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
