package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/reservation-engine/internal/calendar"
	"github.com/example/reservation-engine/internal/scheduler"
)

// ImportFromCalendar submits every event fetched from source for [from, to) through
// CreateBooking and returns the identifiers of the admitted bookings. Each event
// keeps its own owner; the actor's priority applies to all of them.
//
// Rejected and malformed events are skipped. Access denial and storage failures
// stop the import and are returned with the identifiers admitted so far.
func (m *BookingManager) ImportFromCalendar(ctx context.Context, source calendar.Source, from, to time.Time, actor scheduler.User) (ids []scheduler.BookingID, err error) {
	if m == nil {
		return nil, fmt.Errorf("BookingManager is nil")
	}
	logger := m.loggerWith(ctx, "ImportFromCalendar",
		"actor_id", actor.ID,
		"actor_role", actor.Role,
		"from", from,
		"to", to,
	)
	skipped := 0
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to import calendar", err)
			return
		}
		logger.With("imported", len(ids), "skipped", skipped).InfoContext(ctx, "calendar imported")
	}()

	if !canImport(actor) {
		return nil, fmt.Errorf("%w: role %q may not import calendars", ErrAccessDenied, actor.Role)
	}
	if source == nil {
		return nil, fmt.Errorf("calendar source is nil")
	}

	events, err := source.Fetch(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}

	for _, event := range events {
		adm, createErr := m.CreateBooking(ctx, BookingRequest{
			OwnerID:     event.UserID,
			RoomID:      event.RoomID,
			Start:       event.Start,
			End:         event.End,
			Title:       event.Title,
			Description: event.Description,
		}, actor)
		if createErr != nil {
			var vErr *ValidationError
			if errors.As(createErr, &vErr) {
				skipped++
				logger.WarnContext(ctx, "skipping malformed calendar event", "title", event.Title, "error", createErr)
				continue
			}
			if adm.Admitted {
				ids = append(ids, adm.ID)
			}
			return ids, createErr
		}
		if !adm.Admitted {
			skipped++
			continue
		}
		ids = append(ids, adm.ID)
	}
	return ids, nil
}
