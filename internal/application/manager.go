package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/reservation-engine/internal/history"
	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/recurrence"
	"github.com/example/reservation-engine/internal/scheduler"
)

const (
	scanLookBehind   = 24 * time.Hour
	scanUntilPadding = time.Hour
	scanHorizon      = 365 * 24 * time.Hour
)

// BookingManager runs the admission pipeline: recurrence expansion, conflict
// resolution, authority checks and reversible commits.
//
// A single mutation guard serializes create, modify, cancel, undo and redo. Reads
// go straight to the repository.
type BookingManager struct {
	mu       sync.Mutex
	repo     persistence.BookingRepository
	strategy scheduler.Strategy
	history  *history.History
	engine   *recurrence.Engine
	newOpID  func() string
	logger   *slog.Logger
}

// NewBookingManager wires a manager over repo. A nil strategy selects Reject.
func NewBookingManager(repo persistence.BookingRepository, strategy scheduler.Strategy, opts ManagerOptions) *BookingManager {
	return NewBookingManagerWithLogger(repo, strategy, opts, nil)
}

// NewBookingManagerWithLogger constructs a manager with a specified logger.
func NewBookingManagerWithLogger(repo persistence.BookingRepository, strategy scheduler.Strategy, opts ManagerOptions, logger *slog.Logger) *BookingManager {
	if strategy == nil {
		strategy = scheduler.RejectStrategy{}
	}
	if opts.OperationID == nil {
		opts.OperationID = uuid.NewString
	}
	return &BookingManager{
		repo:     repo,
		strategy: strategy,
		history:  history.New(opts.HistoryLimit),
		engine:   recurrence.NewEngine(opts.MaxInstances),
		newOpID:  opts.OperationID,
		logger:   defaultLogger(logger),
	}
}

func (m *BookingManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	attrs = append([]any{"operation_id", m.newOpID()}, attrs...)
	return serviceLogger(ctx, m.logger, "BookingManager", operation, attrs...)
}

// CreateBooking admits req on behalf of actor.
//
// A strategy rejection is reported through Admission with a nil error. Access
// denial, validation and storage failures are returned as errors.
func (m *BookingManager) CreateBooking(ctx context.Context, req BookingRequest, actor scheduler.User) (adm Admission, err error) {
	if m == nil {
		return Admission{}, fmt.Errorf("BookingManager is nil")
	}
	logger := m.loggerWith(ctx, "CreateBooking",
		"room_id", req.RoomID,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)
	defer func() {
		switch {
		case err != nil:
			logFailure(ctx, logger, "failed to create booking", err)
		case !adm.Admitted:
			logger.InfoContext(ctx, "booking rejected", "reason", adm.Reason)
		default:
			logger.With("booking_id", adm.ID, "preempted", len(adm.Preempted)).InfoContext(ctx, "booking created")
		}
	}()

	if !canCreate(actor) {
		return Admission{}, fmt.Errorf("%w: role %q may not create bookings", ErrAccessDenied, actor.Role)
	}

	booking := req.booking(actor)
	vErr := &ValidationError{}
	validateBooking(booking, vErr)
	if vErr.HasErrors() {
		return Admission{}, vErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from, to := scanWindow(booking)
	requested, err := m.engine.Expand(booking, from, to)
	if err != nil {
		return Admission{}, err
	}
	if len(requested) == 0 {
		requested = []scheduler.Booking{booking}
	}

	existing, err := m.relatedInstances(ctx, booking, from, to, 0)
	if err != nil {
		return Admission{}, err
	}

	var evict []scheduler.BookingID
	for _, instance := range requested {
		res := m.strategy.Resolve(instance, existing, actor)
		if !res.Admitted {
			return Admission{Reason: res.Message, Conflicts: scheduler.DetectConflicts(existing, instance)}, nil
		}
		if len(res.Preempt) > 0 {
			if !canEvict(actor) {
				return Admission{}, fmt.Errorf("%w: role %q may not evict bookings %v", ErrAccessDenied, actor.Role, res.Preempt)
			}
			for _, id := range res.Preempt {
				if !slices.Contains(evict, id) {
					evict = append(evict, id)
				}
			}
			existing = withoutBookings(existing, res.Preempt)
		}
		if res.SuggestedStart != nil {
			booking = booking.Reschedule(*res.SuggestedStart)
			shifted := booking.Start
			adm.SuggestedStart = &shifted
			adm.Reason = res.Message
			break
		}
	}

	id, err := m.commitCreate(ctx, booking, evict)
	if !persistence.Committed(err) {
		return Admission{}, err
	}
	// A snapshot failure still reports the admission that the journal holds.
	adm.ID = id
	adm.Admitted = true
	adm.Preempted = evict
	return adm, err
}

// commitCreate removes the evicted bookings and creates booking as one history entry.
func (m *BookingManager) commitCreate(ctx context.Context, booking scheduler.Booking, evict []scheduler.BookingID) (scheduler.BookingID, error) {
	create := history.NewCreateCommand(m.repo, booking)
	var cmd history.Command = create
	if len(evict) > 0 {
		commands := make([]history.Command, 0, len(evict)+1)
		for _, id := range evict {
			commands = append(commands, history.NewRemoveCommand(m.repo, id))
		}
		cmd = history.NewBatchCommand(append(commands, create)...)
	}
	if err := m.history.Execute(ctx, cmd); err != nil {
		return create.ID(), fmt.Errorf("commit booking: %w", err)
	}
	return create.ID(), nil
}

// ModifyBooking applies change on behalf of actor.
//
// A moved or resized booking is checked again with the active strategy. A shift
// suggestion is applied; rejection or an eviction outcome refuses the change. An
// unknown identifier is reported through Admission with a nil error.
func (m *BookingManager) ModifyBooking(ctx context.Context, change scheduler.Change, actor scheduler.User) (adm Admission, err error) {
	if m == nil {
		return Admission{}, fmt.Errorf("BookingManager is nil")
	}
	logger := m.loggerWith(ctx, "ModifyBooking",
		"booking_id", change.ID,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)
	defer func() {
		switch {
		case err != nil:
			logFailure(ctx, logger, "failed to modify booking", err)
		case !adm.Admitted:
			logger.InfoContext(ctx, "booking modification refused", "reason", adm.Reason)
		default:
			logger.InfoContext(ctx, "booking modified")
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	current, found, err := m.lookup(ctx, change.ID)
	if err != nil {
		return Admission{}, err
	}
	if !found {
		return Admission{ID: change.ID, Reason: fmt.Sprintf("booking %d not found", change.ID)}, nil
	}
	if !canActOn(actor, current) {
		return Admission{}, fmt.Errorf("%w: user %d may not modify booking %d", ErrAccessDenied, actor.ID, current.ID)
	}

	after := change.Apply(current)
	vErr := &ValidationError{}
	validateBooking(after, vErr)
	if vErr.HasErrors() {
		return Admission{}, vErr
	}

	adm.ID = current.ID
	if change.MovesInterval() {
		from, to := scanWindow(after)
		requested, err := m.engine.Expand(after, from, to)
		if err != nil {
			return Admission{}, err
		}
		if len(requested) == 0 {
			requested = []scheduler.Booking{after}
		}
		existing, err := m.relatedInstances(ctx, after, from, to, after.ID)
		if err != nil {
			return Admission{}, err
		}
		for _, instance := range requested {
			res := m.strategy.Resolve(instance, existing, actor)
			if !res.Admitted {
				return Admission{ID: current.ID, Reason: res.Message}, nil
			}
			if len(res.Preempt) > 0 {
				return Admission{ID: current.ID, Reason: fmt.Sprintf("modification would evict bookings %v", res.Preempt)}, nil
			}
			if res.SuggestedStart != nil {
				after = after.Reschedule(*res.SuggestedStart)
				shifted := after.Start
				adm.SuggestedStart = &shifted
				adm.Reason = res.Message
				break
			}
		}
	}

	err = m.history.Execute(ctx, history.NewUpdateCommand(m.repo, current, after))
	if !persistence.Committed(err) {
		return Admission{}, fmt.Errorf("commit modification: %w", err)
	}
	adm.Admitted = true
	if err != nil {
		return adm, fmt.Errorf("commit modification: %w", err)
	}
	return adm, nil
}

// CancelBooking removes the booking with id on behalf of actor. It reports false
// with a nil error when no such booking exists.
func (m *BookingManager) CancelBooking(ctx context.Context, id scheduler.BookingID, actor scheduler.User) (cancelled bool, err error) {
	if m == nil {
		return false, fmt.Errorf("BookingManager is nil")
	}
	logger := m.loggerWith(ctx, "CancelBooking",
		"booking_id", id,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to cancel booking", err)
			return
		}
		logger.With("cancelled", cancelled).InfoContext(ctx, "booking cancel processed")
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	current, found, err := m.lookup(ctx, id)
	if err != nil || !found {
		return false, err
	}
	if !canActOn(actor, current) {
		return false, fmt.Errorf("%w: user %d may not cancel booking %d", ErrAccessDenied, actor.ID, id)
	}
	if err := m.history.Execute(ctx, history.NewRemoveCommand(m.repo, id)); err != nil {
		return persistence.Committed(err), fmt.Errorf("commit cancellation: %w", err)
	}
	return true, nil
}

// GetBooking returns the committed booking template with id.
func (m *BookingManager) GetBooking(ctx context.Context, id scheduler.BookingID) (scheduler.Booking, bool, error) {
	return m.lookup(ctx, id)
}

// ListBookings returns the instances of the room's bookings overlapping [from, to),
// ordered by start then identifier.
func (m *BookingManager) ListBookings(ctx context.Context, room scheduler.RoomID, from, to time.Time) ([]scheduler.Booking, error) {
	if !to.After(from) {
		return nil, &ValidationError{FieldErrors: map[string]string{"to": "must be after from"}}
	}
	all, err := m.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}

	var out []scheduler.Booking
	for _, b := range all {
		if b.RoomID != room {
			continue
		}
		instances, err := m.engine.Expand(b, from, to)
		if err != nil {
			return nil, fmt.Errorf("expand booking %d: %w", b.ID, err)
		}
		out = append(out, instances...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Undo reverts the most recent recorded command.
func (m *BookingManager) Undo(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.loggerWith(ctx, "Undo")
	desc, err := m.history.Undo(ctx)
	if !persistence.Committed(err) {
		logFailure(ctx, logger, "failed to undo", err)
		return "", err
	}
	if err != nil {
		logFailure(ctx, logger, "command undone without snapshot", err)
	}
	logger.InfoContext(ctx, "command undone", "command", desc)
	return "Undid: " + desc, err
}

// Redo re-applies the most recently undone command.
func (m *BookingManager) Redo(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.loggerWith(ctx, "Redo")
	desc, err := m.history.Redo(ctx)
	if !persistence.Committed(err) {
		logFailure(ctx, logger, "failed to redo", err)
		return "", err
	}
	if err != nil {
		logFailure(ctx, logger, "command redone without snapshot", err)
	}
	logger.InfoContext(ctx, "command redone", "command", desc)
	return "Redid: " + desc, err
}

// HistoryDepth returns the number of undoable and redoable commands.
func (m *BookingManager) HistoryDepth() (undo, redo int) {
	return m.history.Depth()
}

// SetStrategy replaces the active conflict strategy. A nil strategy selects Reject.
func (m *BookingManager) SetStrategy(strategy scheduler.Strategy) {
	if strategy == nil {
		strategy = scheduler.RejectStrategy{}
	}
	m.mu.Lock()
	m.strategy = strategy
	m.mu.Unlock()
}

// Strategy returns the active conflict strategy.
func (m *BookingManager) Strategy() scheduler.Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy
}

func (m *BookingManager) lookup(ctx context.Context, id scheduler.BookingID) (scheduler.Booking, bool, error) {
	b, err := m.repo.GetBooking(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return scheduler.Booking{}, false, nil
	}
	if err != nil {
		return scheduler.Booking{}, false, err
	}
	return b, true, nil
}

// relatedInstances expands every committed booking related to candidate over
// [from, to). The booking with identifier skip is left out.
func (m *BookingManager) relatedInstances(ctx context.Context, candidate scheduler.Booking, from, to time.Time, skip scheduler.BookingID) ([]scheduler.Booking, error) {
	all, err := m.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	var out []scheduler.Booking
	for _, b := range all {
		if skip != 0 && b.ID == skip {
			continue
		}
		if !candidate.Related(b) {
			continue
		}
		instances, err := m.engine.Expand(b, from, to)
		if err != nil {
			return nil, fmt.Errorf("expand booking %d: %w", b.ID, err)
		}
		out = append(out, instances...)
	}
	return out, nil
}

// scanWindow bounds the instances considered for conflicts with b.
func scanWindow(b scheduler.Booking) (time.Time, time.Time) {
	from := b.Start.Add(-scanLookBehind)
	if until := b.Recurrence.Until; until != nil && b.Recurrence.Kind != scheduler.RecurrenceNone {
		return from, until.Add(scanUntilPadding)
	}
	to := b.Start.Add(scanHorizon)
	if b.End.After(to) {
		to = b.End
	}
	return from, to
}

func withoutBookings(instances []scheduler.Booking, ids []scheduler.BookingID) []scheduler.Booking {
	out := make([]scheduler.Booking, 0, len(instances))
	for _, inst := range instances {
		if !slices.Contains(ids, inst.ID) {
			out = append(out, inst)
		}
	}
	return out
}
