package giveaway

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("giveaway not found")
	ErrAlreadyEnded   = errors.New("giveaway already ended")
	ErrNoParticipants = errors.New("giveaway has no participants")
	ErrValidation     = errors.New("invalid giveaway")
	ErrUnreachable    = errors.New("collaborator unreachable")
	ErrAlreadyEntered = errors.New("already entered")
	ErrActionPending  = errors.New("another action is already pending")
	ErrNotEligible    = errors.New("not eligible")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IneligibleError carries the human-readable reason a join was refused.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string { return e.Reason }

func (e *IneligibleError) Is(target error) bool { return target == ErrNotEligible }
