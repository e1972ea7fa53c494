package history

import (
	"context"
	"errors"
	"sync"

	"github.com/example/reservation-engine/internal/persistence"
)

// DefaultLimit is the default undo depth.
const DefaultLimit = 300

var (
	// ErrNothingToUndo is returned by Undo on an empty undo stack.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty redo stack.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// History holds bounded undo and redo stacks. Its lock serializes Undo and Redo
// against each other; callers that share the repository with other writers must
// hold their own mutation guard around these calls.
type History struct {
	mu    sync.Mutex
	limit int
	undo  []Command
	redo  []Command
}

// New returns a History keeping at most limit undo entries. Non-positive values
// select DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Execute runs cmd and records it when its mutation was applied. A snapshot
// failure is recorded and still returned.
func (h *History) Execute(ctx context.Context, cmd Command) error {
	err := cmd.Execute(ctx)
	if persistence.Committed(err) {
		h.Record(cmd)
	}
	return err
}

// Record pushes an already-executed command, evicting the oldest entry past the
// limit, and clears the redo stack.
func (h *History) Record(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undo = append(h.undo, cmd)
	if over := len(h.undo) - h.limit; over > 0 {
		clear(h.undo[:over])
		h.undo = h.undo[over:]
	}
	clear(h.redo)
	h.redo = h.redo[:0]
}

// Undo reverts the most recent command and returns its description. A command
// whose Undo fails stays on the undo stack.
func (h *History) Undo(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undo) == 0 {
		return "", ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	err := cmd.Undo(ctx)
	if !persistence.Committed(err) {
		return "", err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	return cmd.Describe(), err
}

// Redo re-applies the most recently undone command and returns its description.
func (h *History) Redo(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redo) == 0 {
		return "", ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	err := cmd.Execute(ctx)
	if !persistence.Committed(err) {
		return "", err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	return cmd.Describe(), err
}

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo), len(h.redo)
}
