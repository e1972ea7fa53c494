// Package calendar fetches events from external calendars for bulk import.
package calendar

import (
	"context"
	"time"

	"github.com/example/reservation-engine/internal/scheduler"
)

// Event is one calendar entry to be submitted as a booking request.
type Event struct {
	RoomID      scheduler.RoomID
	UserID      scheduler.UserID
	Start       time.Time
	End         time.Time
	Title       string
	Description string
}

// Source fetches the events overlapping [from, to).
type Source interface {
	Fetch(ctx context.Context, from, to time.Time) ([]Event, error)
}

// FilterByWindow returns the events that overlap [from, to), preserving order.
func FilterByWindow(events []Event, from, to time.Time) []Event {
	var filtered []Event
	for _, e := range events {
		if scheduler.Overlaps(e.Start, e.End, from, to) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
