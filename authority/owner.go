package authority

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
)

// NonceStore persists the last accepted command nonce.
type NonceStore interface {
	LastNonce() (uint64, error)
	SetLastNonce(n uint64) error
}

// MemNonceStore is an in-memory NonceStore.
type MemNonceStore struct {
	mu   sync.Mutex
	last uint64
}

// LastNonce returns the last accepted nonce, 0 if none.
func (s *MemNonceStore) LastNonce() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

// SetLastNonce records n as the last accepted nonce.
func (s *MemNonceStore) SetLastNonce(n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = n
	return nil
}

// Owner authorizes commands signed by a single owner address. Nonces must
// strictly increase.
type Owner struct {
	owner  address.Address
	nonces NonceStore

	mu sync.Mutex
}

// NewOwner returns an authorizer for owner.
func NewOwner(owner address.Address, nonces NonceStore) (*Owner, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner address", ErrNilParam)
	}
	if nonces == nil {
		return nil, fmt.Errorf("%w: nonce store", ErrNilParam)
	}
	return &Owner{owner: owner, nonces: nonces}, nil
}

// Address returns the owner address.
func (o *Owner) Address() address.Address {
	return o.owner
}

// NextNonce returns the smallest nonce Authorize would currently accept.
func (o *Owner) NextNonce() (uint64, error) {
	last, err := o.nonces.LastNonce()
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Authorize checks that sc is a well-formed command signed by the owner with
// a fresh nonce, and consumes the nonce.
func (o *Owner) Authorize(sc *SignedCommand) error {
	if sc == nil {
		return fmt.Errorf("%w: command", ErrNilParam)
	}
	if sc.Action != ActionLock && sc.Action != ActionUnlock {
		return fmt.Errorf("%w: %s", ErrUnknownAction, sc.Action)
	}

	pub, err := sc.verify()
	if err != nil {
		return err
	}
	if signer := AddressOf(pub); signer != o.owner {
		return fmt.Errorf("%w: signed by %s", ErrUnauthorized, signer)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	last, err := o.nonces.LastNonce()
	if err != nil {
		return err
	}
	if sc.Nonce <= last {
		return fmt.Errorf("%w: %d (last %d)", ErrReplayedNonce, sc.Nonce, last)
	}
	return o.nonces.SetLastNonce(sc.Nonce)
}

// Blacklist is the part of the ledger the Guard drives.
type Blacklist interface {
	LockAddress(wallet address.Address) error
	UnlockAddress(wallet address.Address) error
}

// Guard applies authorized commands to a Blacklist.
type Guard struct {
	owner *Owner
	list  Blacklist
	log   *zap.Logger
}

// NewGuard returns a Guard. A nil logger disables logging.
func NewGuard(owner *Owner, list Blacklist, logger *zap.Logger) (*Guard, error) {
	if owner == nil || list == nil {
		return nil, fmt.Errorf("%w: owner and blacklist", ErrNilParam)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{owner: owner, list: list, log: logger}, nil
}

// Execute authorizes sc and applies it.
func (g *Guard) Execute(sc *SignedCommand) error {
	if err := g.owner.Authorize(sc); err != nil {
		g.log.Warn("admin command rejected", zap.Error(err))
		return err
	}

	var err error
	switch sc.Action {
	case ActionLock:
		err = g.list.LockAddress(sc.Wallet)
	case ActionUnlock:
		err = g.list.UnlockAddress(sc.Wallet)
	}
	if err != nil {
		return fmt.Errorf("authority: %s %s: %w", sc.Action, sc.Wallet, err)
	}

	g.log.Info("admin command applied",
		zap.Stringer("action", sc.Action),
		zap.Stringer("wallet", sc.Wallet),
		zap.Uint64("nonce", sc.Nonce),
	)
	return nil
}
