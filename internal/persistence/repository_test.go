package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/scheduler"
)

var reference = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

func newBooking(room scheduler.RoomID, startHour int) scheduler.Booking {
	until := reference.Add(72 * time.Hour)
	return scheduler.Booking{
		RoomID:        room,
		OwnerID:       7,
		Start:         reference.Add(time.Duration(startHour) * time.Hour),
		End:           reference.Add(time.Duration(startHour+1) * time.Hour),
		Recurrence:    scheduler.Recurrence{Kind: scheduler.RecurrenceDaily, Until: &until},
		Title:         "sync",
		Description:   "weekly sync",
		Attendees:     []scheduler.UserID{7, 8},
		Resources:     []scheduler.ResourceID{"projector-1"},
		OwnerPriority: 10,
	}
}

func newRepository(t *testing.T, storage persistence.Storage) *persistence.Repository {
	t.Helper()
	repo, err := persistence.NewRepository(context.Background(), storage, persistence.RepositoryOptions{
		Now: func() time.Time { return reference },
	})
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	return repo
}

type faultyStorage struct {
	*persistence.MemoryStorage
	failJournal  bool
	failSnapshot bool
}

func (f *faultyStorage) AppendJournal(ctx context.Context, entry persistence.JournalEntry) error {
	if f.failJournal {
		return errors.New("disk full")
	}
	return f.MemoryStorage.AppendJournal(ctx, entry)
}

func (f *faultyStorage) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	if f.failSnapshot {
		return errors.New("rename failed")
	}
	return f.MemoryStorage.SaveSnapshot(ctx, snapshot)
}

func TestRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads, updates, and removes bookings", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := newRepository(t, persistence.NewMemoryStorage())

		first, err := repo.CreateBooking(ctx, newBooking(1, 0))
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		second, err := repo.CreateBooking(ctx, newBooking(2, 0))
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		if first != 1 || second != 2 {
			t.Fatalf("expected identifiers 1 and 2, got %d and %d", first, second)
		}

		fetched, err := repo.GetBooking(ctx, first)
		if err != nil {
			t.Fatalf("GetBooking failed: %v", err)
		}
		if fetched.ID != first || fetched.Title != "sync" || len(fetched.Resources) != 1 {
			t.Fatalf("unexpected booking: %#v", fetched)
		}

		fetched.Title = "renamed"
		if err := repo.UpdateBooking(ctx, fetched); err != nil {
			t.Fatalf("UpdateBooking failed: %v", err)
		}
		if got, _ := repo.GetBooking(ctx, first); got.Title != "renamed" {
			t.Fatalf("expected updated title, got %q", got.Title)
		}

		if err := repo.RemoveBooking(ctx, second); err != nil {
			t.Fatalf("RemoveBooking failed: %v", err)
		}
		if _, err := repo.GetBooking(ctx, second); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		third, err := repo.CreateBooking(ctx, newBooking(3, 0))
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		if third != 2 {
			t.Fatalf("expected max+1 identifier 2 after removal, got %d", third)
		}
	})

	t.Run("missing records report not found", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := newRepository(t, persistence.NewMemoryStorage())

		if err := repo.UpdateBooking(ctx, scheduler.Booking{ID: 9}); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from update, got %v", err)
		}
		if err := repo.RemoveBooking(ctx, 9); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from remove, got %v", err)
		}
	})

	t.Run("restore keeps the original identifier", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := newRepository(t, persistence.NewMemoryStorage())

		for i := 0; i < 3; i++ {
			if _, err := repo.CreateBooking(ctx, newBooking(1, i*2)); err != nil {
				t.Fatalf("CreateBooking failed: %v", err)
			}
		}
		original, _ := repo.GetBooking(ctx, 2)
		if err := repo.RemoveBooking(ctx, 2); err != nil {
			t.Fatalf("RemoveBooking failed: %v", err)
		}
		if err := repo.RestoreBooking(ctx, original); err != nil {
			t.Fatalf("RestoreBooking failed: %v", err)
		}
		if got, err := repo.GetBooking(ctx, 2); err != nil || got.Title != original.Title {
			t.Fatalf("expected booking 2 to be restored, got %#v, %v", got, err)
		}
		if err := repo.RestoreBooking(ctx, original); !errors.Is(err, persistence.ErrConflict) {
			t.Fatalf("expected ErrConflict restoring a taken identifier, got %v", err)
		}
	})

	t.Run("reloads snapshot including priority and recurrence", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := persistence.NewMemoryStorage()
		repo := newRepository(t, storage)
		id, err := repo.CreateBooking(ctx, newBooking(4, 1))
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}

		reopened := newRepository(t, storage)
		got, err := reopened.GetBooking(ctx, id)
		if err != nil {
			t.Fatalf("GetBooking after reload failed: %v", err)
		}
		want := newBooking(4, 1)
		if got.OwnerPriority != 10 || got.Recurrence.Kind != scheduler.RecurrenceDaily || !got.Recurrence.Until.Equal(*want.Recurrence.Until) {
			t.Fatalf("reloaded booking lost fields: %#v", got)
		}
		if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			t.Fatalf("reloaded booking moved: %v-%v", got.Start, got.End)
		}
		if reopened.Seq() != 1 {
			t.Fatalf("expected seq 1 after reload, got %d", reopened.Seq())
		}
	})

	t.Run("replays journal entries newer than the snapshot", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := &faultyStorage{MemoryStorage: persistence.NewMemoryStorage()}
		repo := newRepository(t, storage)
		if _, err := repo.CreateBooking(ctx, newBooking(1, 0)); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}

		storage.failSnapshot = true
		id, err := repo.CreateBooking(ctx, newBooking(1, 5))
		if !errors.Is(err, persistence.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if id != 2 {
			t.Fatalf("expected the journaled booking to keep identifier 2, got %d", id)
		}
		if _, err := repo.GetBooking(ctx, 2); err != nil {
			t.Fatalf("expected journaled booking to stay in memory: %v", err)
		}

		storage.failSnapshot = false
		reopened := newRepository(t, storage)
		list, _ := reopened.ListBookings(ctx)
		if len(list) != 2 || list[1].ID != 2 {
			t.Fatalf("expected both bookings after replay, got %#v", list)
		}
	})

	t.Run("journal failure leaves memory untouched", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := &faultyStorage{MemoryStorage: persistence.NewMemoryStorage(), failJournal: true}
		repo := newRepository(t, storage)

		if _, err := repo.CreateBooking(ctx, newBooking(1, 0)); !errors.Is(err, persistence.ErrStorage) {
			t.Fatalf("expected ErrStorage, got %v", err)
		}
		if list, _ := repo.ListBookings(ctx); len(list) != 0 {
			t.Fatalf("expected no bookings, got %d", len(list))
		}
	})

	t.Run("skips journal entries with bad checksums", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		storage := persistence.NewMemoryStorage()
		rec := persistence.ToRecord(newBooking(1, 0))
		rec.ID = 1
		good := persistence.JournalEntry{Seq: 1, Op: persistence.OpCreate, Booking: &rec}
		good.Seal()
		bad := persistence.JournalEntry{Seq: 2, Op: persistence.OpRemove, ID: 1}
		bad.Seal()
		bad.ID = 5
		_ = storage.AppendJournal(ctx, good)
		_ = storage.AppendJournal(ctx, bad)

		repo := newRepository(t, storage)
		if _, err := repo.GetBooking(ctx, 1); err != nil {
			t.Fatalf("expected booking 1 to survive the tampered remove: %v", err)
		}
	})

	t.Run("concurrent creates assign unique identifiers", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		repo := newRepository(t, persistence.NewMemoryStorage())

		const workers = 16
		ids := make(chan scheduler.BookingID, workers*10)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					id, err := repo.CreateBooking(ctx, newBooking(scheduler.RoomID(w), i))
					if err != nil {
						t.Errorf("CreateBooking failed: %v", err)
						return
					}
					ids <- id
					_, _ = repo.ListBookings(ctx)
				}
			}(w)
		}
		wg.Wait()
		close(ids)

		seen := make(map[scheduler.BookingID]bool)
		for id := range ids {
			if seen[id] {
				t.Fatalf("duplicate identifier %d", id)
			}
			seen[id] = true
		}
		if len(seen) != workers*10 {
			t.Fatalf("expected %d bookings, got %d", workers*10, len(seen))
		}
	})
}
