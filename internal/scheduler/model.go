package scheduler

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// BookingID identifies a committed booking. The zero value means "not yet committed".
type BookingID uint64

// RoomID identifies a bookable room.
type RoomID uint64

// UserID identifies an actor or attendee.
type UserID uint64

// ResourceID identifies an ancillary resource such as "projector-1". Equality is by value.
type ResourceID string

// Role is the authority level of an actor.
type Role string

const (
	// RoleAdmin has full administrative reach.
	RoleAdmin Role = "admin"
	// RoleManager may act on any booking and trigger evictions.
	RoleManager Role = "manager"
	// RoleUser may only act on bookings they own.
	RoleUser Role = "user"
)

// ErrUnknownRole indicates a role string that does not map to a known role.
var ErrUnknownRole = errors.New("scheduler: unknown role")

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleUser:
		return RoleUser, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
}

// Rank orders roles by authority: Admin > Manager > User. Unknown roles rank zero.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// DefaultPriority returns the preemption priority conventionally assigned to a role.
func (r Role) DefaultPriority() int {
	switch r {
	case RoleAdmin:
		return 100
	case RoleManager:
		return 50
	case RoleUser:
		return 10
	}
	return 0
}

// User is an already-authenticated actor supplied by the caller on every call.
type User struct {
	ID       UserID
	Name     string
	Role     Role
	Priority int
}

// RecurrenceKind enumerates the supported repetition intervals. The numeric values are persisted.
type RecurrenceKind int

const (
	// RecurrenceNone marks a single, non-repeating booking.
	RecurrenceNone RecurrenceKind = iota
	// RecurrenceDaily repeats every 24 hours.
	RecurrenceDaily
	// RecurrenceWeekly repeats every 7 × 24 hours.
	RecurrenceWeekly
)

// String returns the lower-case name of the kind.
func (k RecurrenceKind) String() string {
	switch k {
	case RecurrenceNone:
		return "none"
	case RecurrenceDaily:
		return "daily"
	case RecurrenceWeekly:
		return "weekly"
	}
	return fmt.Sprintf("recurrence(%d)", int(k))
}

// Step returns the distance between consecutive instances, or zero for RecurrenceNone.
func (k RecurrenceKind) Step() time.Duration {
	switch k {
	case RecurrenceDaily:
		return 24 * time.Hour
	case RecurrenceWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// ParseRecurrenceKind converts "none", "daily" or "weekly" into a RecurrenceKind.
func ParseRecurrenceKind(value string) (RecurrenceKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return RecurrenceNone, nil
	case "daily":
		return RecurrenceDaily, nil
	case "weekly":
		return RecurrenceWeekly, nil
	}
	return RecurrenceNone, fmt.Errorf("scheduler: unknown recurrence %q", value)
}

// Recurrence describes how a booking template repeats. Until is an exclusive bound on instance starts.
type Recurrence struct {
	Kind  RecurrenceKind
	Until *time.Time
}

// Booking is a reservation template. A recurring template materializes into many instances
// that share its ID; only the template itself is ever stored.
type Booking struct {
	ID            BookingID
	RoomID        RoomID
	OwnerID       UserID
	Start         time.Time
	End           time.Time
	Recurrence    Recurrence
	Title         string
	Description   string
	Attendees     []UserID
	Resources     []ResourceID
	OwnerPriority int
}

// Duration returns End - Start.
func (b Booking) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// Overlaps reports whether the intervals of b and other intersect. Touching endpoints never overlap.
func (b Booking) Overlaps(other Booking) bool {
	return Overlaps(b.Start, b.End, other.Start, other.End)
}

// Related reports whether b and other are conflict candidates: same room or a shared resource.
func (b Booking) Related(other Booking) bool {
	if b.RoomID == other.RoomID {
		return true
	}
	_, shared := b.SharedResource(other)
	return shared
}

// SharedResource returns the first resource of b that other also holds.
func (b Booking) SharedResource(other Booking) (ResourceID, bool) {
	for _, r := range b.Resources {
		if slices.Contains(other.Resources, r) {
			return r, true
		}
	}
	return "", false
}

// AttendeeCount returns the number of distinct attendees.
func (b Booking) AttendeeCount() int {
	seen := make(map[UserID]struct{}, len(b.Attendees))
	for _, a := range b.Attendees {
		seen[a] = struct{}{}
	}
	return len(seen)
}

// Reschedule returns a copy of b moved to start with its duration preserved.
func (b Booking) Reschedule(start time.Time) Booking {
	out := b.Clone()
	d := b.Duration()
	out.Start = start
	out.End = start.Add(d)
	return out
}

// Clone returns a deep copy of b.
func (b Booking) Clone() Booking {
	out := b
	out.Attendees = slices.Clone(b.Attendees)
	out.Resources = slices.Clone(b.Resources)
	if b.Recurrence.Until != nil {
		until := *b.Recurrence.Until
		out.Recurrence.Until = &until
	}
	return out
}

// Change is a partial update; nil fields are left untouched.
type Change struct {
	ID          BookingID
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

// Apply returns a copy of b with the fields present in c applied.
func (c Change) Apply(b Booking) Booking {
	out := b.Clone()
	if c.Title != nil {
		out.Title = *c.Title
	}
	if c.Description != nil {
		out.Description = *c.Description
	}
	if c.Start != nil {
		out.Start = *c.Start
	}
	if c.End != nil {
		out.End = *c.End
	}
	return out
}

// MovesInterval reports whether c changes the booking's time interval.
func (c Change) MovesInterval() bool {
	return c.Start != nil || c.End != nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
