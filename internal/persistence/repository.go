package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/reservation-engine/internal/scheduler"
)

// Repository keeps committed bookings in memory and writes every mutation through to Storage:
// the journal entry is appended first, then the snapshot is rewritten.
//
// Reads take the shared lock; writes are serialized against each other.
type Repository struct {
	mu       sync.RWMutex
	storage  Storage
	bookings map[scheduler.BookingID]scheduler.Booking
	seq      uint64
	now      func() time.Time
	newOpID  func() string
	logger   *slog.Logger
}

// RepositoryOptions customizes NewRepository. Zero values select defaults.
type RepositoryOptions struct {
	Now    func() time.Time
	OpID   func() string
	Logger *slog.Logger
}

// NewRepository loads the snapshot from storage, replays any journal entries newer than the
// snapshot and returns a ready repository.
func NewRepository(ctx context.Context, storage Storage, opts RepositoryOptions) (*Repository, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OpID == nil {
		opts.OpID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Repository{
		storage:  storage,
		bookings: make(map[scheduler.BookingID]scheduler.Booking),
		now:      opts.Now,
		newOpID:  opts.OpID,
		logger:   opts.Logger.With("component", "repository"),
	}
	if err := r.reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.storage.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("%w: load snapshot: %w", ErrStorage, err)
	}
	for _, rec := range snap.Bookings {
		b := FromRecord(rec)
		r.bookings[b.ID] = b
	}
	r.seq = snap.Seq

	entries, err := r.storage.LoadJournal(ctx)
	if err != nil {
		return fmt.Errorf("%w: load journal: %w", ErrStorage, err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })

	replayed, skipped := 0, 0
	for _, entry := range entries {
		if entry.Seq <= r.seq {
			continue
		}
		if !entry.Verify() || !r.applyLocked(entry) {
			skipped++
			continue
		}
		r.seq = entry.Seq
		replayed++
	}
	if replayed > 0 || skipped > 0 {
		r.logger.InfoContext(ctx, "journal replayed", "replayed", replayed, "skipped", skipped, "seq", r.seq)
	}
	return nil
}

// applyLocked replays one journal entry against the in-memory set.
func (r *Repository) applyLocked(entry JournalEntry) bool {
	switch entry.Op {
	case OpCreate, OpRestore, OpUpdate:
		if entry.Booking == nil {
			return false
		}
		b := FromRecord(*entry.Booking)
		r.bookings[b.ID] = b
	case OpRemove:
		delete(r.bookings, scheduler.BookingID(entry.ID))
	default:
		return false
	}
	return true
}

// CreateBooking stores a booking under the next identifier (maximum existing + 1).
func (r *Repository) CreateBooking(ctx context.Context, booking scheduler.Booking) (scheduler.BookingID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var maxID scheduler.BookingID
	for id := range r.bookings {
		if id > maxID {
			maxID = id
		}
	}
	stored := booking.Clone()
	stored.ID = maxID + 1

	rec := ToRecord(stored)
	err := r.commitLocked(ctx, JournalEntry{Op: OpCreate, Booking: &rec}, func() {
		r.bookings[stored.ID] = stored
	})
	if !Committed(err) {
		return 0, err
	}
	return stored.ID, err
}

// RestoreBooking re-inserts a booking under its original identifier.
func (r *Repository) RestoreBooking(ctx context.Context, booking scheduler.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == 0 {
		return fmt.Errorf("%w: restore requires an identifier", ErrNotFound)
	}
	if _, ok := r.bookings[booking.ID]; ok {
		return fmt.Errorf("%w: booking %d", ErrConflict, booking.ID)
	}
	stored := booking.Clone()
	rec := ToRecord(stored)
	return r.commitLocked(ctx, JournalEntry{Op: OpRestore, Booking: &rec}, func() {
		r.bookings[stored.ID] = stored
	})
}

// UpdateBooking replaces an existing booking.
func (r *Repository) UpdateBooking(ctx context.Context, booking scheduler.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.ID]; !ok {
		return ErrNotFound
	}
	stored := booking.Clone()
	rec := ToRecord(stored)
	return r.commitLocked(ctx, JournalEntry{Op: OpUpdate, Booking: &rec}, func() {
		r.bookings[stored.ID] = stored
	})
}

// RemoveBooking deletes a booking by identifier.
func (r *Repository) RemoveBooking(ctx context.Context, id scheduler.BookingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	return r.commitLocked(ctx, JournalEntry{Op: OpRemove, ID: uint64(id)}, func() {
		delete(r.bookings, id)
	})
}

// GetBooking returns a booking by identifier.
func (r *Repository) GetBooking(ctx context.Context, id scheduler.BookingID) (scheduler.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return scheduler.Booking{}, ErrNotFound
	}
	return b.Clone(), nil
}

// ListBookings returns every committed booking ordered by identifier.
func (r *Repository) ListBookings(ctx context.Context) ([]scheduler.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scheduler.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Seq returns the sequence number of the last committed journal entry.
func (r *Repository) Seq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seq
}

// commitLocked journals entry, applies the in-memory mutation and rewrites the snapshot.
// A journal failure leaves memory untouched. A snapshot failure is reported after the
// mutation has been applied, because the journal entry will replay it on the next load.
func (r *Repository) commitLocked(ctx context.Context, entry JournalEntry, apply func()) error {
	entry.Seq = r.seq + 1
	entry.OpID = r.newOpID()
	entry.At = r.now().Unix()
	entry.Seal()

	if err := r.storage.AppendJournal(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "journal append failed", "op", entry.Op, "seq", entry.Seq, "error", err)
		return fmt.Errorf("%w: append journal: %w", ErrStorage, err)
	}
	r.seq = entry.Seq
	apply()

	if err := r.storage.SaveSnapshot(ctx, r.snapshotLocked()); err != nil {
		r.logger.ErrorContext(ctx, "snapshot save failed", "op", entry.Op, "seq", entry.Seq, "error", err)
		return fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	return nil
}

func (r *Repository) snapshotLocked() Snapshot {
	records := make([]BookingRecord, 0, len(r.bookings))
	for _, b := range r.bookings {
		records = append(records, ToRecord(b))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return Snapshot{
		Version:  SnapshotVersion,
		Seq:      r.seq,
		SavedAt:  r.now().Unix(),
		Bookings: records,
	}
}
