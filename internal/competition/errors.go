package competition

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a permission predicate denies the actor.
	ErrForbidden         = errors.New("forbidden")
	ErrFull              = errors.New("competition is full")
	ErrAlreadyRegistered = errors.New("participant already registered")
	ErrAlreadySponsored  = errors.New("sponsor already contributed to this competition")
	ErrAlreadyMember     = errors.New("already a team member")
	// ErrFinalized is returned by writes that lose a race with finalization.
	ErrFinalized = fmt.Errorf("%w: competition is finalized", ErrForbidden)
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid input")
)
