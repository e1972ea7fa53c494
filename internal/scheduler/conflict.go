package scheduler

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ConflictType describes why two booking instances clash.
type ConflictType string

const (
	// ConflictTypeRoom indicates the room is double-booked.
	ConflictTypeRoom ConflictType = "room"
	// ConflictTypeResource indicates a shared resource is double-booked.
	ConflictTypeResource ConflictType = "resource"
)

// Conflict details an overlapping instance that callers can present to users.
type Conflict struct {
	WithBookingID BookingID
	Type          ConflictType
	RoomID        RoomID
	Resource      ResourceID
	Start         time.Time
	End           time.Time
}

// String renders the conflict for log lines and rejection reasons.
func (c Conflict) String() string {
	if c.Type == ConflictTypeResource {
		return fmt.Sprintf("booking %d (resource %s)", c.WithBookingID, c.Resource)
	}
	return fmt.Sprintf("booking %d (room %d)", c.WithBookingID, c.RoomID)
}

// DetectConflicts identifies conflicts for the candidate against existing instances, in the
// order the existing instances are given. Unrelated instances never conflict.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	for _, e := range existing {
		if !candidate.Overlaps(e) {
			continue
		}
		if c, ok := classify(candidate, e); ok {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

func classify(candidate, e Booking) (Conflict, bool) {
	c := Conflict{WithBookingID: e.ID, RoomID: e.RoomID, Start: e.Start, End: e.End}
	if candidate.RoomID == e.RoomID {
		c.Type = ConflictTypeRoom
		return c, true
	}
	if r, ok := candidate.SharedResource(e); ok {
		c.Type = ConflictTypeResource
		c.Resource = r
		return c, true
	}
	return Conflict{}, false
}

// Resolution is the verdict of a Strategy for one candidate instance. At most one of
// rejection, SuggestedStart, or a non-empty Preempt applies.
type Resolution struct {
	Admitted       bool
	Message        string
	SuggestedStart *time.Time
	Preempt        []BookingID
}

func admit() Resolution {
	return Resolution{Admitted: true}
}

func reject(format string, args ...any) Resolution {
	return Resolution{Message: fmt.Sprintf(format, args...)}
}

// Strategy decides the fate of one candidate instance against related existing instances.
type Strategy interface {
	Name() string
	Resolve(candidate Booking, existing []Booking, actor User) Resolution
}

// RejectStrategy refuses the candidate on the first overlap found in the order given.
type RejectStrategy struct{}

// Name implements Strategy.
func (RejectStrategy) Name() string { return "reject" }

// Resolve implements Strategy.
func (RejectStrategy) Resolve(candidate Booking, existing []Booking, _ User) Resolution {
	for _, e := range existing {
		if c, ok := classify(candidate, e); ok && candidate.Overlaps(e) {
			return reject("conflict with %s", c)
		}
	}
	return admit()
}

// DefaultMaxShiftPasses bounds AutoShiftStrategy when no explicit bound is configured.
const DefaultMaxShiftPasses = 1000

// AutoShiftStrategy moves the candidate to the end of any overlapping instance, keeping its
// duration, until it no longer overlaps. MaxPasses bounds the number of scans.
type AutoShiftStrategy struct {
	MaxPasses int
}

// Name implements Strategy.
func (AutoShiftStrategy) Name() string { return "autoshift" }

// Resolve implements Strategy.
func (s AutoShiftStrategy) Resolve(candidate Booking, existing []Booking, _ User) Resolution {
	limit := s.MaxPasses
	if limit <= 0 {
		limit = DefaultMaxShiftPasses
	}
	start := candidate.Start
	duration := candidate.Duration()

	for pass := 0; ; pass++ {
		if pass == limit {
			return reject("no free slot found after %d shift passes", limit)
		}
		moved := false
		for _, e := range existing {
			if Overlaps(start, start.Add(duration), e.Start, e.End) {
				start = e.End
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	if start.Equal(candidate.Start) {
		return admit()
	}
	return Resolution{
		Admitted:       true,
		Message:        "shifted to " + start.UTC().Format(time.RFC3339),
		SuggestedStart: &start,
	}
}

// PreemptStrategy evicts overlapping instances whose owner priority is strictly below the
// actor's. A single overlapping instance with priority at or above the actor's blocks admission.
type PreemptStrategy struct{}

// Name implements Strategy.
func (PreemptStrategy) Name() string { return "preempt" }

// Resolve implements Strategy.
func (PreemptStrategy) Resolve(candidate Booking, existing []Booking, actor User) Resolution {
	var evict []BookingID
	for _, e := range existing {
		if !candidate.Overlaps(e) {
			continue
		}
		if actor.Priority <= e.OwnerPriority {
			return reject("booking %d has priority %d, not below %d", e.ID, e.OwnerPriority, actor.Priority)
		}
		if !slices.Contains(evict, e.ID) {
			evict = append(evict, e.ID)
		}
	}
	if len(evict) == 0 {
		return admit()
	}
	return Resolution{Admitted: true, Message: "preempting lower priority bookings", Preempt: evict}
}

// QuorumStrategy admits an overlapping candidate only if it has at least Required attendees.
type QuorumStrategy struct {
	Required int
}

// Name implements Strategy.
func (QuorumStrategy) Name() string { return "quorum" }

// Resolve implements Strategy.
func (s QuorumStrategy) Resolve(candidate Booking, existing []Booking, _ User) Resolution {
	for _, e := range existing {
		if !candidate.Overlaps(e) {
			continue
		}
		if candidate.AttendeeCount() >= s.Required {
			return Resolution{Admitted: true, Message: fmt.Sprintf("allowed by quorum (%d)", s.Required)}
		}
		return reject("conflict with booking %d and quorum not satisfied (need %d)", e.ID, s.Required)
	}
	return admit()
}

// StrategyOptions parameterizes NewStrategy.
type StrategyOptions struct {
	Quorum         int
	MaxShiftPasses int
}

// NewStrategy builds a strategy by name: reject, autoshift, preempt or quorum.
func NewStrategy(name string, opts StrategyOptions) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reject":
		return RejectStrategy{}, nil
	case "autoshift", "auto-shift", "autobump":
		return AutoShiftStrategy{MaxPasses: opts.MaxShiftPasses}, nil
	case "preempt", "preemption":
		return PreemptStrategy{}, nil
	case "quorum":
		if opts.Quorum <= 0 {
			return nil, fmt.Errorf("scheduler: quorum strategy requires a positive size, got %d", opts.Quorum)
		}
		return QuorumStrategy{Required: opts.Quorum}, nil
	}
	return nil, fmt.Errorf("scheduler: unknown strategy %q", name)
}
