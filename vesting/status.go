package vesting

import (
	"math/big"
	"time"
)

// Phase is the vesting state of one (round, wallet) pair. It is always
// derived from time, allocation and the claimed total; it is never stored.
type Phase uint8

const (
	NotParticipating Phase = iota
	Locked
	Vesting
	FullyVested
	FullyClaimed
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case NotParticipating:
		return "not-participating"
	case Locked:
		return "locked"
	case Vesting:
		return "vesting"
	case FullyVested:
		return "fully-vested"
	case FullyClaimed:
		return "fully-claimed"
	default:
		return "unknown"
	}
}

// Status is a read-only snapshot of a wallet's position in one round.
type Status struct {
	Round     RoundIndex
	Phase     Phase
	Total     *big.Int
	Unlocked  *big.Int
	Claimed   *big.Int
	Claimable *big.Int
}

// Derive computes the Status for a wallet with the given allocation and
// claimed total at instant at.
func Derive(r Round, total, claimed *big.Int, at time.Time) Status {
	if total == nil {
		total = new(big.Int)
	}
	if claimed == nil {
		claimed = new(big.Int)
	}
	unlocked := Unlocked(total, r, at)

	claimable := new(big.Int).Sub(unlocked, claimed)
	if claimable.Sign() < 0 {
		claimable.SetInt64(0)
	}

	st := Status{
		Round:     r.Index,
		Total:     new(big.Int).Set(total),
		Unlocked:  unlocked,
		Claimed:   new(big.Int).Set(claimed),
		Claimable: claimable,
	}

	switch {
	case total.Sign() == 0:
		st.Phase = NotParticipating
	case claimed.Cmp(total) >= 0:
		st.Phase = FullyClaimed
	case !at.After(r.EffectiveStart()):
		st.Phase = Locked
	case unlocked.Cmp(total) == 0:
		st.Phase = FullyVested
	default:
		st.Phase = Vesting
	}
	return st
}
