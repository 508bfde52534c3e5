package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("state conflict")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrAuth              = errors.New("authentication failed")
	ErrNotFound          = errors.New("not found")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrCancelled         = errors.New("cancelled by user")

	ErrDuplicateVote = fmt.Errorf("%w: vote already exists", ErrConflict)
	ErrNoActiveVote  = fmt.Errorf("%w: no active vote", ErrConflict)
)

// NewValidationError reports a caller-side precondition violation. No remote
// call is ever made after one of these.
func NewValidationError(field, reason string) error {
	if field == "" {
		return fmt.Errorf("%w: %s", ErrValidation, reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrValidation, field, reason)
}

// IsRecoverable reports whether err belongs to the taxonomy every view is
// expected to absorb. Everything in this module is, but unknown errors from
// collaborators are treated as remote failures by callers.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotLoggedIn) ||
		errors.Is(err, ErrCancelled)
}

// AsRemote makes sure err can be matched with ErrRemoteUnavailable unless it
// already carries a more specific classification.
func AsRemote(err error) error {
	if err == nil || IsRecoverable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
}
