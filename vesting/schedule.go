package vesting

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
)

// AllocationTable collects per-wallet allocations before a Schedule is built.
// It is not safe for concurrent use.
type AllocationTable struct {
	entries map[RoundIndex]map[address.Address]*big.Int
}

// NewAllocationTable returns an empty table.
func NewAllocationTable() *AllocationTable {
	return &AllocationTable{entries: make(map[RoundIndex]map[address.Address]*big.Int)}
}

// Set records the total vested amount for wallet in round.
func (t *AllocationTable) Set(round RoundIndex, wallet address.Address, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	if wallet.IsZero() {
		return ErrZeroAddress
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s in round %d", ErrZeroAllocation, wallet, round)
	}

	byWallet, ok := t.entries[round]
	if !ok {
		byWallet = make(map[address.Address]*big.Int)
		t.entries[round] = byWallet
	}
	if _, exists := byWallet[wallet]; exists {
		return fmt.Errorf("%w: %s in round %d", ErrDuplicateAllocation, wallet, round)
	}
	byWallet[wallet] = new(big.Int).Set(amount)
	return nil
}

// SetString is Set with a base-10 amount.
func (t *AllocationTable) SetString(round RoundIndex, wallet address.Address, amount string) error {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("%w: %q for %s", ErrInvalidAmount, amount, wallet)
	}
	return t.Set(round, wallet, v)
}

// Len returns the number of (round, wallet) entries.
func (t *AllocationTable) Len() int {
	n := 0
	for _, byWallet := range t.entries {
		n += len(byWallet)
	}
	return n
}

// Schedule is the immutable round table plus allocations. It is built once
// and shared by the calculator and the ledger; all accessors return copies.
type Schedule struct {
	rounds      map[RoundIndex]Round
	order       []RoundIndex
	allocations map[RoundIndex]map[address.Address]*big.Int
}

// NewSchedule validates rounds and clones table into a new Schedule.
// A nil table yields a schedule with no participants.
func NewSchedule(rounds []Round, table *AllocationTable) (*Schedule, error) {
	if len(rounds) == 0 {
		return nil, fmt.Errorf("%w: no rounds", ErrInvalidRound)
	}

	s := &Schedule{
		rounds:      make(map[RoundIndex]Round, len(rounds)),
		allocations: make(map[RoundIndex]map[address.Address]*big.Int, len(rounds)),
	}
	for _, r := range rounds {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, exists := s.rounds[r.Index]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateRound, r.Index)
		}
		s.rounds[r.Index] = r
		s.order = append(s.order, r.Index)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })

	if table == nil {
		return s, nil
	}
	for idx, byWallet := range table.entries {
		if _, ok := s.rounds[idx]; !ok {
			return nil, fmt.Errorf("%w: allocations reference round %d", ErrUnsupportedRound, idx)
		}
		cloned := make(map[address.Address]*big.Int, len(byWallet))
		for w, amount := range byWallet {
			cloned[w] = new(big.Int).Set(amount)
		}
		s.allocations[idx] = cloned
	}
	return s, nil
}

// Round returns the configuration for idx.
func (s *Schedule) Round(idx RoundIndex) (Round, error) {
	r, ok := s.rounds[idx]
	if !ok {
		return Round{}, fmt.Errorf("%w: %d", ErrUnsupportedRound, idx)
	}
	return r, nil
}

// Rounds returns all rounds ordered by index.
func (s *Schedule) Rounds() []Round {
	out := make([]Round, 0, len(s.order))
	for _, idx := range s.order {
		out = append(out, s.rounds[idx])
	}
	return out
}

// Allocation returns wallet's total allocation in round idx, zero if absent.
func (s *Schedule) Allocation(idx RoundIndex, wallet address.Address) (*big.Int, error) {
	if _, ok := s.rounds[idx]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedRound, idx)
	}
	if amount, ok := s.allocations[idx][wallet]; ok {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int), nil
}

// Participates reports whether wallet holds an allocation in any round.
func (s *Schedule) Participates(wallet address.Address) bool {
	for _, byWallet := range s.allocations {
		if _, ok := byWallet[wallet]; ok {
			return true
		}
	}
	return false
}

// Wallets returns the wallets allocated in round idx, sorted by address bytes.
func (s *Schedule) Wallets(idx RoundIndex) []address.Address {
	byWallet := s.allocations[idx]
	out := make([]address.Address, 0, len(byWallet))
	for w := range byWallet {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}

// TotalAllocated sums every allocation in round idx.
func (s *Schedule) TotalAllocated(idx RoundIndex) *big.Int {
	total := new(big.Int)
	for _, amount := range s.allocations[idx] {
		total.Add(total, amount)
	}
	return total
}
