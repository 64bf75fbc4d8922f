package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// Registration failures. These are reported to the caller as a boolean
	// rather than surfaced as transport errors.
	ErrCapacityRange = errors.New("computational capacity must be within [0, 1]")
	ErrNoNetworks    = errors.New("at least one network affiliation is required")

	// Round lifecycle failures.
	ErrInsufficientParticipants = errors.New("insufficient participants")
	ErrNotParticipant           = errors.New("agent is not a participant of the round")
	ErrDuplicateUpdate          = errors.New("update already submitted for this round")
	ErrRoundClosed              = errors.New("round no longer accepts updates")
	ErrTooManyFaulty            = errors.New("byzantine agents exceed round tolerance")
	ErrBudgetExhausted          = errors.New("privacy budget exhausted")
	ErrInvalidTransition        = errors.New("invalid round phase transition")
)
