// Package sqlite implements persistence.Storage on SQLite (modernc.org/sqlite).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage keeps the snapshot in normalized booking tables and the journal in
// its own table. SaveSnapshot replaces the booking tables in one transaction.
type Storage struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	mapper ErrorMapper
	logger *slog.Logger
}

var _ persistence.Storage = (*Storage)(nil)

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:   pool,
		retry:  NewRetryHelper(DefaultRetryConfig()),
		logger: logger.With("component", "sqlite_storage", "dsn", config.DSN),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	return manager.RunMigrations(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// SaveSnapshot replaces every booking row and drops journal entries the
// snapshot already contains.
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range []string{
				`DELETE FROM booking_attendees`,
				`DELETE FROM booking_resources`,
				`DELETE FROM bookings`,
			} {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("clear bookings: %w", err)
				}
			}
			for _, rec := range snapshot.Bookings {
				if err := insertBooking(ctx, tx, rec); err != nil {
					return err
				}
			}

			const metaSQL = `
				INSERT INTO snapshot_meta (id, version, seq, saved_at) VALUES (1, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET version = excluded.version, seq = excluded.seq, saved_at = excluded.saved_at`
			if _, err := tx.ExecContext(ctx, metaSQL, snapshot.Version, int64(snapshot.Seq), snapshot.SavedAt); err != nil {
				return fmt.Errorf("write snapshot meta: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM journal WHERE seq <= ?`, int64(snapshot.Seq)); err != nil {
				return fmt.Errorf("compact journal: %w", err)
			}
			return nil
		})
	})
}

func insertBooking(ctx context.Context, tx *sql.Tx, rec persistence.BookingRecord) error {
	const bookingSQL = `
		INSERT INTO bookings (id, room_id, user_id, start_at, end_at, title, description, recurrence_type, recurrence_until, owner_priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var until sql.NullInt64
	if rec.Recurrence.Until != nil {
		until = sql.NullInt64{Int64: *rec.Recurrence.Until, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, bookingSQL,
		int64(rec.ID), int64(rec.RoomID), int64(rec.UserID),
		rec.Start, rec.End,
		rec.Title, rec.Description,
		rec.Recurrence.Type, until,
		rec.OwnerPriority,
	); err != nil {
		return fmt.Errorf("insert booking %d: %w", rec.ID, err)
	}

	for i, a := range rec.Attendees {
		if _, err := tx.ExecContext(ctx, `INSERT INTO booking_attendees (booking_id, position, user_id) VALUES (?, ?, ?)`, int64(rec.ID), i, int64(a)); err != nil {
			return fmt.Errorf("insert attendee for booking %d: %w", rec.ID, err)
		}
	}
	for i, r := range rec.Resources {
		if _, err := tx.ExecContext(ctx, `INSERT INTO booking_resources (booking_id, position, resource) VALUES (?, ?, ?)`, int64(rec.ID), i, r); err != nil {
			return fmt.Errorf("insert resource for booking %d: %w", rec.ID, err)
		}
	}
	return nil
}

// LoadSnapshot reads the booking tables. An empty database is an empty snapshot.
func (s *Storage) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	db := s.pool.DB()
	snap := persistence.Snapshot{Version: persistence.SnapshotVersion}

	var seq int64
	err := db.QueryRowContext(ctx, `SELECT version, seq, saved_at FROM snapshot_meta WHERE id = 1`).Scan(&snap.Version, &seq, &snap.SavedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return persistence.Snapshot{}, s.mapper.MapError(fmt.Errorf("read snapshot meta: %w", err))
	default:
		snap.Seq = uint64(seq)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, room_id, user_id, start_at, end_at, title, description, recurrence_type, recurrence_until, owner_priority
		FROM bookings ORDER BY id`)
	if err != nil {
		return persistence.Snapshot{}, s.mapper.MapError(fmt.Errorf("query bookings: %w", err))
	}
	defer rows.Close()

	index := make(map[uint64]int)
	for rows.Next() {
		var (
			rec            persistence.BookingRecord
			id, room, user int64
			until          sql.NullInt64
		)
		if err := rows.Scan(&id, &room, &user, &rec.Start, &rec.End, &rec.Title, &rec.Description, &rec.Recurrence.Type, &until, &rec.OwnerPriority); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan booking: %w", err)
		}
		rec.ID, rec.RoomID, rec.UserID = uint64(id), uint64(room), uint64(user)
		if until.Valid {
			v := until.Int64
			rec.Recurrence.Until = &v
		}
		rec.Attendees = []uint64{}
		rec.Resources = []string{}
		index[rec.ID] = len(snap.Bookings)
		snap.Bookings = append(snap.Bookings, rec)
	}
	if err := rows.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("iterate bookings: %w", err)
	}
	// The pool may hold a single connection; release it before the next query.
	rows.Close()

	attendees, err := db.QueryContext(ctx, `SELECT booking_id, user_id FROM booking_attendees ORDER BY booking_id, position`)
	if err != nil {
		return persistence.Snapshot{}, s.mapper.MapError(fmt.Errorf("query attendees: %w", err))
	}
	defer attendees.Close()
	for attendees.Next() {
		var bookingID, user int64
		if err := attendees.Scan(&bookingID, &user); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan attendee: %w", err)
		}
		if i, ok := index[uint64(bookingID)]; ok {
			snap.Bookings[i].Attendees = append(snap.Bookings[i].Attendees, uint64(user))
		}
	}
	if err := attendees.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("iterate attendees: %w", err)
	}
	attendees.Close()

	resources, err := db.QueryContext(ctx, `SELECT booking_id, resource FROM booking_resources ORDER BY booking_id, position`)
	if err != nil {
		return persistence.Snapshot{}, s.mapper.MapError(fmt.Errorf("query resources: %w", err))
	}
	defer resources.Close()
	for resources.Next() {
		var (
			bookingID int64
			resource  string
		)
		if err := resources.Scan(&bookingID, &resource); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan resource: %w", err)
		}
		if i, ok := index[uint64(bookingID)]; ok {
			snap.Bookings[i].Resources = append(snap.Bookings[i].Resources, resource)
		}
	}
	if err := resources.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("iterate resources: %w", err)
	}

	return snap, nil
}

// AppendJournal inserts entry. A duplicate sequence maps to persistence.ErrConflict.
func (s *Storage) AppendJournal(ctx context.Context, entry persistence.JournalEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	return s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx,
			`INSERT INTO journal (seq, op_id, op, at, entry, checksum) VALUES (?, ?, ?, ?, ?, ?)`,
			int64(entry.Seq), entry.OpID, string(entry.Op), entry.At, string(payload), entry.Checksum,
		)
		return err
	})
}

// LoadJournal returns journal entries in sequence order. Rows whose payload does
// not decode are logged and skipped.
func (s *Storage) LoadJournal(ctx context.Context) ([]persistence.JournalEntry, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT seq, entry FROM journal ORDER BY seq`)
	if err != nil {
		return nil, s.mapper.MapError(fmt.Errorf("query journal: %w", err))
	}
	defer rows.Close()

	var entries []persistence.JournalEntry
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		var entry persistence.JournalEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			s.logger.WarnContext(ctx, "skipping malformed journal row", "seq", seq, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
