package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated covers missing, malformed, unknown, expired and revoked credentials.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden is returned for valid credentials lacking a type or scope.
	ErrForbidden = errors.New("auth: forbidden")

	ErrNotFound           = errors.New("auth: not found")
	ErrDuplicate          = errors.New("auth: duplicate")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already registered")
)

// Reason explains why a credential was rejected.
type Reason string

const (
	ReasonMissing        Reason = "MISSING"
	ReasonMalformed      Reason = "MISSING_OR_MALFORMED"
	ReasonNotFound       Reason = "NOT_FOUND"
	ReasonExpired        Reason = "EXPIRED"
	ReasonRevoked        Reason = "REVOKED_OR_INACTIVE"
	ReasonTypeForbidden  Reason = "TYPE_FORBIDDEN"
	ReasonScopeForbidden Reason = "SCOPE_FORBIDDEN"
)

// Failure is the typed rejection returned by the authenticators.
type Failure struct {
	Reason Reason
}

func (f *Failure) Error() string {
	return fmt.Sprintf("auth: %s", f.Reason)
}

// Unwrap lets callers test against ErrUnauthenticated or ErrForbidden.
func (f *Failure) Unwrap() error {
	switch f.Reason {
	case ReasonTypeForbidden, ReasonScopeForbidden:
		return ErrForbidden
	default:
		return ErrUnauthenticated
	}
}

func fail(r Reason) error { return &Failure{Reason: r} }

// ReasonOf extracts the failure reason, or "" when err is not a Failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}
