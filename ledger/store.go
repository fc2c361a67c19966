package ledger

import (
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

// Receipt records one successful claim. ID is assigned by the store on Commit.
type Receipt struct {
	ID     uint64
	Wallet address.Address
	Round  vesting.RoundIndex
	Amount *big.Int
	At     time.Time
}

func (r *Receipt) clone() *Receipt {
	c := *r
	if r.Amount != nil {
		c.Amount = new(big.Int).Set(r.Amount)
	}
	return &c
}

// Store persists claimed totals, claim receipts and the blacklist.
type Store interface {
	// Claimed returns the total already claimed by wallet in round.
	Claimed(round vesting.RoundIndex, wallet address.Address) (*big.Int, error)

	// Commit atomically adds r.Amount to the claimed total and stores the
	// receipt, assigning r.ID.
	Commit(r *Receipt) error

	// Revert undoes a previous Commit of r.
	Revert(r *Receipt) error

	// Receipts returns wallet's receipts ordered by ID.
	Receipts(wallet address.Address) ([]*Receipt, error)

	// Blocked reports whether wallet is blacklisted.
	Blocked(wallet address.Address) (bool, error)

	// SetBlocked adds or removes wallet from the blacklist and reports
	// whether the stored flag changed.
	SetBlocked(wallet address.Address, blocked bool) (bool, error)
}

// claimKey identifies one (round, wallet) claimed total.
type claimKey struct {
	round  vesting.RoundIndex
	wallet address.Address
}

func validateReceipt(r *Receipt) error {
	if r == nil {
		return fmt.Errorf("%w: receipt", ErrNilParam)
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s round %d", ErrInvalidReceipt, r.Wallet, r.Round)
	}
	return nil
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu       sync.RWMutex
	claimed  map[claimKey]*big.Int
	receipts map[address.Address][]*Receipt
	blocked  map[address.Address]bool
	lastID   uint64
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		claimed:  make(map[claimKey]*big.Int),
		receipts: make(map[address.Address][]*Receipt),
		blocked:  make(map[address.Address]bool),
	}
}

// Claimed returns the total already claimed by wallet in round.
func (s *MemStore) Claimed(round vesting.RoundIndex, wallet address.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.claimed[claimKey{round, wallet}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// Commit adds r.Amount to the claimed total and records the receipt.
func (s *MemStore) Commit(r *Receipt) error {
	if err := validateReceipt(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := claimKey{r.Round, r.Wallet}
	total, ok := s.claimed[key]
	if !ok {
		total = new(big.Int)
		s.claimed[key] = total
	}
	total.Add(total, r.Amount)

	s.lastID++
	r.ID = s.lastID
	s.receipts[r.Wallet] = append(s.receipts[r.Wallet], r.clone())
	return nil
}

// Revert subtracts r.Amount from the claimed total and drops the receipt.
func (s *MemStore) Revert(r *Receipt) error {
	if err := validateReceipt(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.receipts[r.Wallet]
	pos := -1
	for i, rec := range list {
		if rec.ID == r.ID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: %d", ErrReceiptNotFound, r.ID)
	}

	key := claimKey{r.Round, r.Wallet}
	total := new(big.Int)
	if v, ok := s.claimed[key]; ok {
		total.Set(v)
	}
	total.Sub(total, r.Amount)
	if total.Sign() < 0 {
		return fmt.Errorf("%w: %s round %d", ErrCorruptState, r.Wallet, r.Round)
	}

	if total.Sign() == 0 {
		delete(s.claimed, key)
	} else {
		s.claimed[key] = total
	}
	s.receipts[r.Wallet] = append(list[:pos:pos], list[pos+1:]...)
	return nil
}

// Receipts returns wallet's receipts ordered by ID.
func (s *MemStore) Receipts(wallet address.Address) ([]*Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.receipts[wallet]
	out := make([]*Receipt, 0, len(list))
	for _, r := range list {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Blocked reports whether wallet is blacklisted.
func (s *MemStore) Blocked(wallet address.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked[wallet], nil
}

// SetBlocked updates wallet's blacklist flag.
func (s *MemStore) SetBlocked(wallet address.Address, blocked bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocked[wallet] == blocked {
		return false, nil
	}
	if blocked {
		s.blocked[wallet] = true
	} else {
		delete(s.blocked, wallet)
	}
	return true, nil
}
