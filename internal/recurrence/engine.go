package recurrence

import (
	"errors"
	"time"

	"github.com/example/reservation-engine/internal/scheduler"
)

// DefaultMaxInstances caps the number of instances a single expansion may emit.
const DefaultMaxInstances = 10000

// ErrInvalidFrequency indicates the recurrence kind is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidDuration indicates the template duration is not positive.
var ErrInvalidDuration = errors.New("recurrence: booking duration must be positive")

// Engine expands booking templates into concrete instances.
type Engine struct {
	maxInstances int
}

// NewEngine constructs an Engine emitting at most maxInstances instances per expansion.
// Non-positive values select DefaultMaxInstances.
func NewEngine(maxInstances int) *Engine {
	if maxInstances <= 0 {
		maxInstances = DefaultMaxInstances
	}
	return &Engine{maxInstances: maxInstances}
}

var defaultEngine = NewEngine(DefaultMaxInstances)

// Expand is shorthand for the default engine's Expand.
func Expand(template scheduler.Booking, from, to time.Time) ([]scheduler.Booking, error) {
	return defaultEngine.Expand(template, from, to)
}

// Expand produces, in chronological order, the instances of template overlapping [from, to).
//
// The engine enforces the following semantics:
//   - A non-recurring template yields itself when it overlaps the window.
//   - Recurring templates step from the original start by 24h (daily) or 7×24h (weekly) and stop
//     once the stepped start reaches the earlier of Recurrence.Until and to.
//   - Each instance copies every template field, including the identifier; only Start/End shift.
//   - Steps ending before the window are skipped arithmetically, so old templates cost nothing.
//   - Output beyond the engine's instance cap is silently truncated, so callers must bound windows.
func (e *Engine) Expand(template scheduler.Booking, from, to time.Time) ([]scheduler.Booking, error) {
	if !template.End.After(template.Start) {
		return nil, ErrInvalidDuration
	}

	kind := template.Recurrence.Kind
	if kind == scheduler.RecurrenceNone {
		if scheduler.Overlaps(template.Start, template.End, from, to) {
			return []scheduler.Booking{template.Clone()}, nil
		}
		return nil, nil
	}

	step := kind.Step()
	if step <= 0 {
		return nil, ErrInvalidFrequency
	}

	limit := to
	if until := template.Recurrence.Until; until != nil && until.Before(limit) {
		limit = *until
	}

	duration := template.Duration()
	instances := make([]scheduler.Booking, 0)
	current := template.Start

	// Skip whole steps that end at or before from; their instances cannot overlap.
	if gap := from.Sub(template.Start) - duration; gap > 0 {
		current = current.Add(gap / step * step)
	}

	for current.Before(limit) && len(instances) < e.maxInstances {
		end := current.Add(duration)
		if scheduler.Overlaps(current, end, from, to) {
			instance := template.Clone()
			instance.Start = current
			instance.End = end
			instances = append(instances, instance)
		}
		current = current.Add(step)
	}

	return instances, nil
}
