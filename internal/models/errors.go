package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                  = errors.New("not found")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidInput              = errors.New("invalid input")
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrCancellationNotAllowed    = errors.New("cancellation not allowed after payment release")
	ErrIntegrityViolation        = errors.New("ledger integrity violation")
	ErrConflict                  = errors.New("conflict")
	ErrDuplicateReference        = errors.New("duplicate reference")
)

// TransitionError names the action that was refused and the status it was
// refused from.
type TransitionError struct {
	Action string
	From   ProjectStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s a project in status %q", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
