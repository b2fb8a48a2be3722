package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type mockFileScanner struct {
	migrations []Migration
	scanError  error
}

func (m *mockFileScanner) ScanMigrations() ([]Migration, error) {
	if m.scanError != nil {
		return nil, m.scanError
	}
	return m.migrations, nil
}

type mockExecutor struct {
	applied        []AppliedMigration
	initError      error
	executionError map[string]error
	executionOrder []string
}

func (m *mockExecutor) InitializeVersionTable(ctx context.Context) error {
	return m.initError
}

func (m *mockExecutor) ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error) {
	if err := m.executionError[migration.Version]; err != nil {
		return 0, err
	}
	m.executionOrder = append(m.executionOrder, migration.Version)
	m.applied = append(m.applied, AppliedMigration{Version: migration.Version, AppliedAt: time.Now()})
	return time.Millisecond, nil
}

func (m *mockExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	return m.applied, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleMigrations(versions ...string) []Migration {
	out := make([]Migration, 0, len(versions))
	for _, v := range versions {
		out = append(out, Migration{Version: v, Description: "step " + v, SQL: "SELECT 1;", Source: v + "_step.sql"})
	}
	return out
}

func TestManager_RunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pending migrations in order", func(t *testing.T) {
		executor := &mockExecutor{applied: []AppliedMigration{{Version: "001"}}}
		manager := NewManager(&mockFileScanner{migrations: sampleMigrations("001", "002", "003")}, executor, quietLogger())

		count, err := manager.RunMigrations(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected 2 migrations applied, got %d", count)
		}
		if len(executor.executionOrder) != 2 || executor.executionOrder[0] != "002" || executor.executionOrder[1] != "003" {
			t.Fatalf("unexpected execution order %v", executor.executionOrder)
		}

		status, err := manager.GetMigrationStatus(ctx)
		if err != nil {
			t.Fatalf("unexpected status error: %v", err)
		}
		if status.CurrentVersion != "003" || len(status.Pending) != 0 {
			t.Fatalf("unexpected status %+v", status)
		}
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		boom := errors.New("syntax error")
		executor := &mockExecutor{executionError: map[string]error{"002": boom}}
		manager := NewManager(&mockFileScanner{migrations: sampleMigrations("001", "002", "003")}, executor, quietLogger())

		count, err := manager.RunMigrations(ctx)
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		var migrationErr *MigrationError
		if !errors.As(err, &migrationErr) || migrationErr.Version != "002" {
			t.Fatalf("expected MigrationError for 002, got %v", err)
		}
		if count != 1 || len(executor.executionOrder) != 1 {
			t.Fatalf("expected only 001 applied, got %d (%v)", count, executor.executionOrder)
		}
	})

	t.Run("rejects gaps and orphaned versions", func(t *testing.T) {
		gap := NewManager(&mockFileScanner{migrations: sampleMigrations("001", "003")}, &mockExecutor{}, quietLogger())
		if _, err := gap.RunMigrations(ctx); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict for gap, got %v", err)
		}

		orphan := NewManager(&mockFileScanner{migrations: sampleMigrations("001")}, &mockExecutor{applied: []AppliedMigration{{Version: "002"}}}, quietLogger())
		if _, err := orphan.RunMigrations(ctx); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict for orphan, got %v", err)
		}
	})

	t.Run("propagates scanner and version table errors", func(t *testing.T) {
		scanErr := errors.New("unreadable")
		manager := NewManager(&mockFileScanner{scanError: scanErr}, &mockExecutor{}, quietLogger())
		if _, err := manager.RunMigrations(ctx); !errors.Is(err, scanErr) {
			t.Fatalf("expected scan error, got %v", err)
		}

		initErr := errors.New("read-only database")
		manager = NewManager(&mockFileScanner{migrations: sampleMigrations("001")}, &mockExecutor{initError: initErr}, nil)
		if _, err := manager.RunMigrations(ctx); !errors.Is(err, initErr) {
			t.Fatalf("expected init error, got %v", err)
		}
	})
}
