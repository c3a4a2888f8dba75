package task

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-policy input. Nothing is
// mutated when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a reference to a task or blocker that does not
// exist.
type NotFoundError struct {
	Kind string // "task" or "blocker"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func taskNotFound(id int64) error    { return &NotFoundError{Kind: "task", ID: id} }
func blockerNotFound(id int64) error { return &NotFoundError{Kind: "blocker", ID: id} }
