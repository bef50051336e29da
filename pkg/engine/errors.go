package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure a mutating operation can return wraps one of
// these, so callers can branch on the category with errors.Is without
// matching the specific condition.
var (
	ErrValidation        = errors.New("validation error")
	ErrAuthorization     = errors.New("authorization error")
	ErrConflict          = errors.New("conflict error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStake = errors.New("insufficient stake")
	ErrCooldownActive    = errors.New("cooldown active")
	ErrPendingVotes      = errors.New("pending votes")
)

// Operation-specific conditions. Each wraps its taxonomy parent: for example
// errors.Is(err, ErrDuplicateVote) and errors.Is(err, ErrConflict) both hold
// for a rejected second vote.
var (
	ErrAlreadyRegistered    = fmt.Errorf("%w: already registered", ErrConflict)
	ErrDuplicateSubmission  = fmt.Errorf("%w: duplicate submission", ErrConflict)
	ErrDuplicateVote        = fmt.Errorf("%w: duplicate vote", ErrConflict)
	ErrAlreadyFinalized     = fmt.Errorf("%w: submission already finalized", ErrConflict)
	ErrAlreadySlashed       = fmt.Errorf("%w: participant already slashed", ErrConflict)
	ErrNotActiveParticipant = fmt.Errorf("%w: participant not active", ErrAuthorization)
	ErrNotFinalized         = fmt.Errorf("%w: submission not finalized", ErrValidation)
)
