package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/persistence/file"
	"github.com/example/reservation-engine/internal/persistence/sqlite"
	"github.com/example/reservation-engine/internal/persistence/sqlite/migration"
)

// NewFileStorage returns a file storage rooted in a temporary directory using the
// named snapshot codec.
func NewFileStorage(tb testing.TB, codec string) *file.Storage {
	tb.Helper()

	c, err := file.CodecByName(codec)
	if err != nil {
		tb.Fatalf("unknown codec %q: %v", codec, err)
	}
	dir := tb.TempDir()
	storage, err := file.New(file.Options{
		SnapshotPath: filepath.Join(dir, "bookings.snapshot"),
		Codec:        c,
	})
	if err != nil {
		tb.Fatalf("failed to open file storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })
	return storage
}

// NewSQLiteStorage returns a migrated SQLite storage backed by a temporary file.
func NewSQLiteStorage(tb testing.TB) *sqlite.Storage {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "bookings.db")
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })
	return storage
}

// NewRepository loads a repository over storage. A nil storage selects an
// in-memory one.
func NewRepository(tb testing.TB, storage persistence.Storage) *persistence.Repository {
	tb.Helper()

	if storage == nil {
		storage = persistence.NewMemoryStorage()
	}
	repo, err := persistence.NewRepository(context.Background(), storage, persistence.RepositoryOptions{
		Now:  NewClock(ReferenceTime()).NowFunc(),
		OpID: NewIDGenerator("journal").NextFunc(),
	})
	if err != nil {
		tb.Fatalf("failed to load repository: %v", err)
	}
	return repo
}
