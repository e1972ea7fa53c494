package migration

import (
	"context"
	"time"
)

// Migration is a single schema migration file.
type Migration struct {
	Version     string // numeric version, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarizes the applied and pending migrations.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// Source lists the available migrations.
type Source interface {
	ScanMigrations() ([]Migration, error)
}

// Executor runs migrations against the database and tracks applied versions.
type Executor interface {
	// InitializeVersionTable creates schema_migrations if it does not exist.
	InitializeVersionTable(ctx context.Context) error

	// ExecuteMigration runs the migration and records it in one transaction.
	ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error)

	// GetAppliedVersions returns every applied migration in version order.
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
