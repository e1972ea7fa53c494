// Package migration applies versioned schema migrations to a SQLite database.
//
// Migrations are read from an fs.FS (usually an embed.FS) and must be named
// {version}_{description}.sql, e.g. "001_initial_schema.sql". Versions are
// applied in ascending numeric order, each inside its own transaction, and
// recorded in the schema_migrations table together with a checksum of the
// file contents. A recorded checksum that no longer matches its file fails
// the run, so edited migrations are caught before they diverge.
//
// Example usage:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("bookings.db"))
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
