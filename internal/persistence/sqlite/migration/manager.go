package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager orchestrates the migration process.
type Manager struct {
	source   Source
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger selects slog.Default().
func NewManager(source Source, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:   source,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if status.PendingCount == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "from_version", status.CurrentVersion, "pending", status.PendingCount)
	for i, migration := range status.PendingMigrations {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "file", migration.FilePath, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"duration", elapsed,
		)
	}
	return nil
}

// Status compares the available migrations with schema_migrations. It fails
// when the available versions have gaps, when an applied version has no file,
// or when an applied checksum differs from its file.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	available, err := m.source.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available); err != nil {
		return nil, err
	}

	byVersion := make(map[int]Migration, len(available))
	for _, mig := range available {
		byVersion[versionNumber(mig.Version)] = mig
	}

	status := &Status{AppliedMigrations: applied}
	appliedSet := make(map[int]bool, len(applied))
	for _, a := range applied {
		n := versionNumber(a.Version)
		file, ok := byVersion[n]
		if !ok {
			return nil, fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && a.Checksum != file.Checksum {
			return nil, NewMigrationError(a.Version, file.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		appliedSet[n] = true
		if n > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = a.Version
		}
	}

	for _, mig := range available {
		if !appliedSet[versionNumber(mig.Version)] {
			status.PendingMigrations = append(status.PendingMigrations, mig)
		}
	}
	status.PendingCount = len(status.PendingMigrations)
	return status, nil
}

// validateSequence reports a gap between consecutive available versions.
// available must be sorted.
func validateSequence(available []Migration) error {
	for i := 1; i < len(available); i++ {
		prev, cur := versionNumber(available[i-1].Version), versionNumber(available[i].Version)
		if cur != prev+1 {
			return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, prev+1)
		}
	}
	return nil
}
