// Package history provides reversible booking commands and a bounded undo/redo history.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/reservation-engine/internal/persistence"
	"github.com/example/reservation-engine/internal/scheduler"
)

// Command is a reversible repository mutation.
type Command interface {
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
	Describe() string
}

// CreateCommand inserts a booking. The first Execute lets the repository assign
// the identifier; later executions (redo) restore the booking under that same
// identifier.
type CreateCommand struct {
	repo     persistence.BookingRepository
	booking  scheduler.Booking
	executed bool
}

// NewCreateCommand returns a command that creates booking.
func NewCreateCommand(repo persistence.BookingRepository, booking scheduler.Booking) *CreateCommand {
	return &CreateCommand{repo: repo, booking: booking.Clone()}
}

func (c *CreateCommand) Execute(ctx context.Context) error {
	if c.executed {
		return c.repo.RestoreBooking(ctx, c.booking)
	}
	id, err := c.repo.CreateBooking(ctx, c.booking)
	if persistence.Committed(err) {
		c.booking.ID = id
		c.executed = true
	}
	return err
}

func (c *CreateCommand) Undo(ctx context.Context) error {
	if !c.executed {
		return nil
	}
	return c.repo.RemoveBooking(ctx, c.booking.ID)
}

func (c *CreateCommand) Describe() string {
	return fmt.Sprintf("Create booking id=%d title=%q", c.booking.ID, c.booking.Title)
}

// ID returns the identifier assigned by the first Execute.
func (c *CreateCommand) ID() scheduler.BookingID {
	return c.booking.ID
}

// Booking returns a copy of the booking as committed.
func (c *CreateCommand) Booking() scheduler.Booking {
	return c.booking.Clone()
}

// UpdateCommand replaces a booking, keeping the prior version for Undo.
type UpdateCommand struct {
	repo   persistence.BookingRepository
	before scheduler.Booking
	after  scheduler.Booking
}

// NewUpdateCommand returns a command that moves a booking from before to after.
func NewUpdateCommand(repo persistence.BookingRepository, before, after scheduler.Booking) *UpdateCommand {
	return &UpdateCommand{repo: repo, before: before.Clone(), after: after.Clone()}
}

func (c *UpdateCommand) Execute(ctx context.Context) error {
	return c.repo.UpdateBooking(ctx, c.after)
}

func (c *UpdateCommand) Undo(ctx context.Context) error {
	return c.repo.UpdateBooking(ctx, c.before)
}

func (c *UpdateCommand) Describe() string {
	return fmt.Sprintf("Update booking id=%d title=%q", c.after.ID, c.after.Title)
}

// RemoveCommand deletes a booking. Execute captures the current record so Undo
// can restore it under its original identifier.
type RemoveCommand struct {
	repo     persistence.BookingRepository
	id       scheduler.BookingID
	captured *scheduler.Booking
}

// NewRemoveCommand returns a command that removes the booking with id.
func NewRemoveCommand(repo persistence.BookingRepository, id scheduler.BookingID) *RemoveCommand {
	return &RemoveCommand{repo: repo, id: id}
}

func (c *RemoveCommand) Execute(ctx context.Context) error {
	current, err := c.repo.GetBooking(ctx, c.id)
	if err != nil {
		return err
	}
	err = c.repo.RemoveBooking(ctx, c.id)
	if persistence.Committed(err) {
		c.captured = &current
	}
	return err
}

func (c *RemoveCommand) Undo(ctx context.Context) error {
	if c.captured == nil {
		return nil
	}
	return c.repo.RestoreBooking(ctx, *c.captured)
}

func (c *RemoveCommand) Describe() string {
	return fmt.Sprintf("Cancel booking id=%d", c.id)
}

// BatchCommand applies several commands as one history entry. Undo runs the
// commands in reverse order.
type BatchCommand struct {
	commands []Command
}

// NewBatchCommand groups commands in execution order.
func NewBatchCommand(commands ...Command) *BatchCommand {
	return &BatchCommand{commands: commands}
}

// Execute runs every command in order. When one fails, the commands that already
// ran are undone in reverse before the error is returned. A step that was journaled
// but not snapshotted counts as applied: the batch continues and its snapshot
// errors are returned once every step has run.
func (b *BatchCommand) Execute(ctx context.Context) error {
	var unsaved []error
	for i, cmd := range b.commands {
		err := cmd.Execute(ctx)
		if persistence.Committed(err) {
			if err != nil {
				unsaved = append(unsaved, err)
			}
			continue
		}
		if rollback := b.undoFrom(ctx, i-1); rollback != nil {
			// Rollback errors are not wrapped; the batch is not committed.
			return fmt.Errorf("%w (rollback: %v)", err, rollback)
		}
		return err
	}
	return errors.Join(unsaved...)
}

func (b *BatchCommand) Undo(ctx context.Context) error {
	return b.undoFrom(ctx, len(b.commands)-1)
}

func (b *BatchCommand) undoFrom(ctx context.Context, last int) error {
	var errs []error
	for i := last; i >= 0; i-- {
		if err := b.commands[i].Undo(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *BatchCommand) Describe() string {
	parts := make([]string, 0, len(b.commands))
	for _, cmd := range b.commands {
		parts = append(parts, cmd.Describe())
	}
	return strings.Join(parts, "; ")
}

// Commands returns the grouped commands.
func (b *BatchCommand) Commands() []Command {
	return append([]Command(nil), b.commands...)
}
