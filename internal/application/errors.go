package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/reservation-engine/internal/history"
)

var (
	// ErrAccessDenied is returned when the actor's role or ownership is insufficient for an operation.
	ErrAccessDenied = errors.New("application: access denied")
	// ErrNothingToUndo is returned by Undo on an empty history.
	ErrNothingToUndo = history.ErrNothingToUndo
	// ErrNothingToRedo is returned by Redo when nothing has been undone.
	ErrNothingToRedo = history.ErrNothingToRedo
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
