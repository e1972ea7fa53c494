package application

import (
	"slices"
	"strings"
	"time"

	"github.com/example/reservation-engine/internal/scheduler"
)

// BookingRequest captures caller provided booking fields.
type BookingRequest struct {
	// OwnerID defaults to the acting user when zero.
	OwnerID     scheduler.UserID
	RoomID      scheduler.RoomID
	Start       time.Time
	End         time.Time
	Recurrence  scheduler.Recurrence
	Title       string
	Description string
	Attendees   []scheduler.UserID
	Resources   []scheduler.ResourceID
}

// Admission reports the outcome of a create or modify request.
//
// A rejected request has Admitted false and a human readable Reason. When the
// active strategy moved the booking, SuggestedStart holds the committed start.
type Admission struct {
	ID             scheduler.BookingID
	Admitted       bool
	Reason         string
	SuggestedStart *time.Time
	Preempted      []scheduler.BookingID
	// Conflicts lists the instances that clashed with a rejected request.
	Conflicts []scheduler.Conflict
}

// ManagerOptions customizes NewBookingManager. Zero values select defaults.
type ManagerOptions struct {
	HistoryLimit int
	MaxInstances int
	OperationID  func() string
}

func (r BookingRequest) booking(actor scheduler.User) scheduler.Booking {
	owner := r.OwnerID
	if owner == 0 {
		owner = actor.ID
	}
	b := scheduler.Booking{
		RoomID:        r.RoomID,
		OwnerID:       owner,
		Start:         r.Start,
		End:           r.End,
		Recurrence:    r.Recurrence,
		Title:         strings.TrimSpace(r.Title),
		Description:   r.Description,
		Attendees:     slices.Clone(r.Attendees),
		Resources:     slices.Clone(r.Resources),
		OwnerPriority: actor.Priority,
	}
	return b.Clone()
}

func validateBooking(b scheduler.Booking, vErr *ValidationError) {
	if b.Start.IsZero() {
		vErr.add("start", "is required")
	}
	if b.End.IsZero() {
		vErr.add("end", "is required")
	}
	if !b.Start.IsZero() && !b.End.IsZero() && !b.End.After(b.Start) {
		vErr.add("end", "must be after start")
	}

	switch b.Recurrence.Kind {
	case scheduler.RecurrenceNone, scheduler.RecurrenceDaily, scheduler.RecurrenceWeekly:
	default:
		vErr.add("recurrence", "unknown recurrence kind")
	}
	if until := b.Recurrence.Until; until != nil && b.Recurrence.Kind != scheduler.RecurrenceNone && !until.After(b.Start) {
		vErr.add("until", "must be after start")
	}
	for _, r := range b.Resources {
		if strings.TrimSpace(string(r)) == "" {
			vErr.add("resources", "must not contain empty identifiers")
			break
		}
	}
}
