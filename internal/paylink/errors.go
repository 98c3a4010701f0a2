package paylink

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("paylink: not found")
	ErrInactive          = errors.New("paylink: link is inactive")
	ErrInvalidTransition = errors.New("paylink: invalid status transition")
	ErrDuplicate         = errors.New("paylink: duplicate public id")
	// ErrConfiguration is an operator fault; callers must not see its details.
	ErrConfiguration = errors.New("paylink: server misconfigured")
)

// ValidationError is a payer or merchant input problem with a displayable message.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
