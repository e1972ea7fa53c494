package testfixtures

import (
	"time"

	"github.com/example/reservation-engine/internal/application"
	"github.com/example/reservation-engine/internal/scheduler"
)

// Admin returns an administrator with the conventional admin priority.
func Admin(id scheduler.UserID) scheduler.User {
	return actor(id, "admin", scheduler.RoleAdmin)
}

// Manager returns a manager with the conventional manager priority.
func Manager(id scheduler.UserID) scheduler.User {
	return actor(id, "manager", scheduler.RoleManager)
}

// User returns a regular user with the conventional user priority.
func User(id scheduler.UserID) scheduler.User {
	return actor(id, "user", scheduler.RoleUser)
}

func actor(id scheduler.UserID, name string, role scheduler.Role) scheduler.User {
	return scheduler.User{ID: id, Name: name, Role: role, Priority: role.DefaultPriority()}
}

// RequestOption configures a booking request fixture.
type RequestOption func(*application.BookingRequest)

// NewRequest returns a one hour request for room starting at start.
func NewRequest(room scheduler.RoomID, start time.Time, opts ...RequestOption) application.BookingRequest {
	req := application.BookingRequest{
		RoomID: room,
		Start:  start,
		End:    start.Add(time.Hour),
		Title:  "meeting",
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// WithDuration sets the request length.
func WithDuration(d time.Duration) RequestOption {
	return func(r *application.BookingRequest) {
		r.End = r.Start.Add(d)
	}
}

// WithTitle sets the request title.
func WithTitle(title string) RequestOption {
	return func(r *application.BookingRequest) {
		r.Title = title
	}
}

// WithOwner books on behalf of owner.
func WithOwner(owner scheduler.UserID) RequestOption {
	return func(r *application.BookingRequest) {
		r.OwnerID = owner
	}
}

// WithRecurrence repeats the request until the given bound. A zero until leaves it open ended.
func WithRecurrence(kind scheduler.RecurrenceKind, until time.Time) RequestOption {
	return func(r *application.BookingRequest) {
		r.Recurrence = scheduler.Recurrence{Kind: kind}
		if !until.IsZero() {
			r.Recurrence.Until = &until
		}
	}
}

// WithAttendees sets the attendee list.
func WithAttendees(ids ...scheduler.UserID) RequestOption {
	return func(r *application.BookingRequest) {
		r.Attendees = append([]scheduler.UserID(nil), ids...)
	}
}

// WithResources sets the resource list.
func WithResources(ids ...scheduler.ResourceID) RequestOption {
	return func(r *application.BookingRequest) {
		r.Resources = append([]scheduler.ResourceID(nil), ids...)
	}
}
