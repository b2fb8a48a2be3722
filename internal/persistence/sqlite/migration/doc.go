// Package migration applies versioned SQL schema changes to the parking ledger database.
//
// Migration files live in an fs.FS (usually an embedded directory) and follow the
// naming convention {version}_{description}.sql, for example "001_initial_schema.sql".
// Applied versions are tracked in a schema_migrations table; each migration and its
// bookkeeping row are written in a single transaction.
//
// Example usage:
//
//	scanner := migration.NewScanner(migrationFiles, "migrations")
//	manager := migration.NewManager(scanner, migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
