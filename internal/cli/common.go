package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/reservation-engine/internal/application"
	"github.com/example/reservation-engine/internal/config"
	"github.com/example/reservation-engine/internal/logging"
	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/persistence/file"
	"github.com/example/reservation-engine/internal/persistence/sqlite"
	"github.com/example/reservation-engine/internal/persistence/sqlite/migration"
	"github.com/example/reservation-engine/internal/scheduler"
)

// now is replaced in tests.
var now = time.Now

// engine bundles a booking manager with the storage it owns.
type engine struct {
	cfg     config.Config
	manager *application.BookingManager
	storage persistence.Storage
	logger  *slog.Logger
}

// newEngine loads the configuration and wires storage, repository and manager.
// Log lines go to logOut.
func newEngine(ctx context.Context, logOut io.Writer) (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return nil, err
	}

	storage, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	repo, err := persistence.NewRepository(ctx, storage, persistence.RepositoryOptions{Logger: logger})
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	strategy, err := cfg.Strategy()
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	manager := application.NewBookingManagerWithLogger(repo, strategy, application.ManagerOptions{
		HistoryLimit: cfg.Booking.HistoryLimit,
	}, logger)

	return &engine{cfg: cfg, manager: manager, storage: storage, logger: logger}, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (persistence.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return persistence.NewMemoryStorage(), nil
	case "file":
		codec, err := file.CodecByName(cfg.Codec)
		if err != nil {
			return nil, err
		}
		return file.New(file.Options{
			SnapshotPath: cfg.SnapshotPath,
			JournalPath:  cfg.JournalPath,
			Codec:        codec,
			Logger:       logger,
		})
	case "sqlite":
		storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return storage, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// Close releases the storage.
func (e *engine) Close() {
	if err := e.storage.Close(); err != nil {
		e.logger.Error("failed to close storage", "error", err)
	}
}

// currentActor builds the acting user from the global flags.
func currentActor() (scheduler.User, error) {
	role, err := scheduler.ParseRole(actorRole)
	if err != nil {
		return scheduler.User{}, err
	}
	return newActor(scheduler.UserID(actorID), actorName, role, actorPriority), nil
}

// newActor fills in the role's default priority when priority is zero.
func newActor(id scheduler.UserID, name string, role scheduler.Role, priority int) scheduler.User {
	if priority == 0 {
		priority = role.DefaultPriority()
	}
	return scheduler.User{ID: id, Name: name, Role: role, Priority: priority}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339, a local "2006-01-02 15:04" or a bare date.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339 or \"2006-01-02 15:04\")", value)
}

func parseBookingID(value string) (scheduler.BookingID, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid booking id %q", value)
	}
	return scheduler.BookingID(id), nil
}
