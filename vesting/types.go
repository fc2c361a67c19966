package vesting

import (
	"fmt"
	"time"
)

// BasisPoints is the denominator for InitialUnlockBps.
const BasisPoints = 10000

// RoundIndex identifies a vesting cohort.
type RoundIndex uint32

// Round is the immutable vesting configuration of one investor cohort.
type Round struct {
	Index RoundIndex
	Name  string

	// Start is the nominal start of the round.
	Start time.Time
	// Cliff delays the effective start; nothing unlocks before Start+Cliff.
	Cliff time.Duration
	// Duration is the linear vesting span measured from the effective start.
	Duration time.Duration
	// InitialUnlockBps is released as soon as vesting begins, in basis points.
	InitialUnlockBps uint16
}

// EffectiveStart returns the instant from which tokens begin to unlock.
func (r Round) EffectiveStart() time.Time {
	return r.Start.Add(r.Cliff)
}

// End returns the instant at which the whole allocation is unlocked.
func (r Round) End() time.Time {
	return r.EffectiveStart().Add(r.Duration)
}

// String implements fmt.Stringer.
func (r Round) String() string {
	if r.Name != "" {
		return fmt.Sprintf("%s (#%d)", r.Name, r.Index)
	}
	return fmt.Sprintf("round #%d", r.Index)
}

// validate checks the round fields are usable by the calculator.
func (r Round) validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("%w: %s has no start time", ErrInvalidRound, r)
	}
	if r.Cliff < 0 {
		return fmt.Errorf("%w: %s has negative cliff %s", ErrInvalidRound, r, r.Cliff)
	}
	if r.Duration < time.Second {
		return fmt.Errorf("%w: %s duration %s is shorter than one second", ErrInvalidRound, r, r.Duration)
	}
	if r.InitialUnlockBps > BasisPoints {
		return fmt.Errorf("%w: %s initial unlock %d bps exceeds %d", ErrInvalidRound, r, r.InitialUnlockBps, BasisPoints)
	}
	return nil
}
