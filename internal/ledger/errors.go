package ledger

import (
	"errors" // Sentinel errors
	"fmt"    // Message formatting
)

var (
	// ErrPermissionDenied is matched by every PermissionError
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when a group, profile or payment does not exist
	ErrNotFound = errors.New("not found")
)

// PermissionError names the action a non-admin actor attempted
type PermissionError struct {
	Action string // e.g. "update group savings"
}

func (e *PermissionError) Error() string { return "only admins can " + e.Action }

// Is makes errors.Is(err, ErrPermissionDenied) hold
func (e *PermissionError) Is(target error) bool { return target == ErrPermissionDenied }

// ValidationError names the offending input field
type ValidationError struct {
	Field   string // Input field name
	Message string // What is wrong with it
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}
