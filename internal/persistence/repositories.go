package persistence

import (
	"context"

	"github.com/example/reservation-engine/internal/scheduler"
)

// BookingRepository is the keyed store of committed bookings consumed by the booking manager.
type BookingRepository interface {
	// CreateBooking assigns the next identifier (maximum existing + 1) and stores the booking.
	CreateBooking(ctx context.Context, booking scheduler.Booking) (scheduler.BookingID, error)
	// RestoreBooking stores a booking under its existing identifier, failing with ErrConflict if taken.
	RestoreBooking(ctx context.Context, booking scheduler.Booking) error
	UpdateBooking(ctx context.Context, booking scheduler.Booking) error
	RemoveBooking(ctx context.Context, id scheduler.BookingID) error
	GetBooking(ctx context.Context, id scheduler.BookingID) (scheduler.Booking, error)
	ListBookings(ctx context.Context) ([]scheduler.Booking, error)
}

// Storage persists full snapshots and an ordered journal of operations.
//
// Snapshot writes must atomically replace the previous snapshot. A missing or unreadable
// snapshot loads as empty. LoadSnapshot returns an error only when the store itself
// cannot be queried, as with an unreachable database.
type Storage interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	AppendJournal(ctx context.Context, entry JournalEntry) error
	LoadJournal(ctx context.Context) ([]JournalEntry, error)
	Close() error
}
