package vesting

import (
	"fmt"
	"math/big"
	"time"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
)

// Calculator computes unlocked amounts from a Schedule. It holds no mutable
// state and is safe for concurrent use.
type Calculator struct {
	schedule *Schedule
}

// NewCalculator returns a Calculator bound to schedule.
func NewCalculator(schedule *Schedule) (*Calculator, error) {
	if schedule == nil {
		return nil, fmt.Errorf("%w: schedule", ErrNilParam)
	}
	return &Calculator{schedule: schedule}, nil
}

// Schedule returns the schedule the calculator reads from.
func (c *Calculator) Schedule() *Schedule {
	return c.schedule
}

// UnlockedAmount returns how much of wallet's allocation in round idx is
// unlocked at the given instant. Wallets without an allocation always get 0.
func (c *Calculator) UnlockedAmount(wallet address.Address, idx RoundIndex, at time.Time) (*big.Int, error) {
	r, err := c.schedule.Round(idx)
	if err != nil {
		return nil, err
	}
	total, err := c.schedule.Allocation(idx, wallet)
	if err != nil {
		return nil, err
	}
	return Unlocked(total, r, at), nil
}

// TotalAllocation returns wallet's full allocation in round idx.
func (c *Calculator) TotalAllocation(wallet address.Address, idx RoundIndex) (*big.Int, error) {
	return c.schedule.Allocation(idx, wallet)
}

// Unlocked applies round's release curve to total at the given instant.
//
// Elapsed time is counted in whole seconds from the effective start. Nothing
// is unlocked while elapsed <= 0 and everything is unlocked once elapsed
// reaches the duration. In between the linear remainder is floored:
//
//	initial + (total - initial) * elapsed / duration
func Unlocked(total *big.Int, r Round, at time.Time) *big.Int {
	if total == nil || total.Sign() <= 0 {
		return new(big.Int)
	}

	elapsed := at.Unix() - r.EffectiveStart().Unix()
	if elapsed <= 0 {
		return new(big.Int)
	}
	duration := int64(r.Duration / time.Second)
	if elapsed >= duration {
		return new(big.Int).Set(total)
	}

	initial := initialUnlock(total, r.InitialUnlockBps)

	// Multiply before dividing to keep truncation to a single floor.
	linear := new(big.Int).Sub(total, initial)
	linear.Mul(linear, big.NewInt(elapsed))
	linear.Quo(linear, big.NewInt(duration))

	return linear.Add(linear, initial)
}

// initialUnlock returns floor(total * bps / 10000).
func initialUnlock(total *big.Int, bps uint16) *big.Int {
	if bps == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(total, big.NewInt(int64(bps)))
	return v.Quo(v, big.NewInt(BasisPoints))
}

// VestedFraction returns the unlocked share of any allocation in round idx at
// the given instant, in basis points, floored.
func (c *Calculator) VestedFraction(idx RoundIndex, at time.Time) (uint16, error) {
	r, err := c.schedule.Round(idx)
	if err != nil {
		return 0, err
	}
	bps := Unlocked(big.NewInt(BasisPoints), r, at)
	return uint16(bps.Uint64()), nil
}

// MaxCheckpoints bounds the n accepted by Checkpoints.
const MaxCheckpoints = 10000

// Checkpoints returns n instants splitting round idx's vesting span into n
// equal parts; the last one is the round's end. n may not exceed
// MaxCheckpoints.
func (c *Calculator) Checkpoints(idx RoundIndex, n int) ([]time.Time, error) {
	r, err := c.schedule.Round(idx)
	if err != nil {
		return nil, err
	}
	if n > MaxCheckpoints {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyCheckpoints, n, MaxCheckpoints)
	}
	if n <= 0 {
		return nil, nil
	}
	start := r.EffectiveStart()
	step := r.Duration / time.Duration(n)
	out := make([]time.Time, n)
	for i := 1; i < n; i++ {
		out[i-1] = start.Add(step * time.Duration(i))
	}
	out[n-1] = r.End()
	return out, nil
}
