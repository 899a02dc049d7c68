package services

import "errors"

// Domain error taxonomy. Every failure is scoped to a single request;
// nothing here is fatal to the process. ErrInvalidTransition also covers
// race losses detected at commit time, which callers may retry after
// re-reading.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTokenExpired      = errors.New("invitation token expired")
	ErrTokenAlreadyUsed  = errors.New("invitation token already used")
	ErrValidation        = errors.New("validation failed")
)

// Actor identifies who is performing an operation. It is threaded
// explicitly into every authorization and state machine call; there is no
// ambient session state. A zero UserID means a system-initiated action
// (schedulers).
type Actor struct {
	UserID uint
}

// System is the actor used by schedulers and sweeps.
var System = Actor{UserID: 0}

// IsSystem reports whether the actor is a scheduler rather than a user.
func (a Actor) IsSystem() bool { return a.UserID == 0 }
