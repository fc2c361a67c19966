package vesting

import "errors"

var (
	// ErrUnsupportedRound indicates the round index is not part of the schedule.
	ErrUnsupportedRound = errors.New("vesting: this round is not supported")

	// ErrInvalidRound indicates a round configuration is malformed.
	ErrInvalidRound = errors.New("vesting: invalid round configuration")

	// ErrDuplicateRound indicates two rounds share an index.
	ErrDuplicateRound = errors.New("vesting: duplicate round index")

	// ErrZeroAllocation indicates an allocation amount of zero or less.
	ErrZeroAllocation = errors.New("vesting: allocation must be positive")

	// ErrInvalidAmount indicates an amount string is not a base-10 integer.
	ErrInvalidAmount = errors.New("vesting: invalid amount")

	// ErrDuplicateAllocation indicates a wallet was allocated twice in one round.
	ErrDuplicateAllocation = errors.New("vesting: wallet already allocated in round")

	// ErrZeroAddress indicates the zero address was used as a beneficiary.
	ErrZeroAddress = errors.New("vesting: beneficiary address cannot be zero")

	// ErrTooManyCheckpoints indicates a checkpoint count above MaxCheckpoints.
	ErrTooManyCheckpoints = errors.New("vesting: too many checkpoints")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("vesting: required parameter is nil")
)
