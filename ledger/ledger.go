package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

// Opt configures a Ledger.
type Opt func(*Ledger)

// WithClock sets the clock used as "now" for claims and status reads.
func WithClock(clock clockwork.Clock) Opt {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithLogger sets the ledger's logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(l *Ledger) {
		l.log = logger
	}
}

// Ledger tracks claimed totals against a vesting schedule and pays out the
// unlocked remainder through a Transferer.
//
// Claims for the same (round, wallet) are serialized; claims for different
// keys run in parallel.
type Ledger struct {
	schedule *vesting.Schedule
	calc     *vesting.Calculator
	store    Store
	transfer Transferer
	locks    *keyLock

	// queued is set when transfer is store's own outbox; claims then commit
	// and queue in a single transaction.
	queued *BoltStore

	clock clockwork.Clock
	log   *zap.Logger
}

// New creates a Ledger over schedule, persisting state in store.
func New(schedule *vesting.Schedule, store Store, transfer Transferer, opts ...Opt) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transferer", ErrNilParam)
	}
	calc, err := vesting.NewCalculator(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule", ErrNilParam)
	}

	l := &Ledger{
		schedule: schedule,
		calc:     calc,
		store:    store,
		transfer: transfer,
		locks:    newKeyLock(),
		clock:    clockwork.NewRealClock(),
		log:      zap.NewNop(),
	}
	if bs, ok := store.(*BoltStore); ok {
		if ob, ok := transfer.(*Outbox); ok && bs.owns(ob) {
			l.queued = bs
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Schedule returns the schedule the ledger enforces.
func (l *Ledger) Schedule() *vesting.Schedule {
	return l.schedule
}

// Claim pays out everything wallet has unlocked in round beyond what it has
// already claimed, and returns the amount paid.
//
// Rejections, in order: ErrBlockedWallet, ErrUnsupportedRound,
// ErrNotWhitelisted, ErrNothingToClaim. A failed transfer returns
// ErrTransferFailed after the commit has been reverted.
func (l *Ledger) Claim(ctx context.Context, wallet address.Address, round vesting.RoundIndex) (*big.Int, error) {
	amount, err := l.claim(ctx, wallet, round)
	reportClaim(roundLabel(l.schedule, round), claimResult(err))
	return amount, err
}

func (l *Ledger) claim(ctx context.Context, wallet address.Address, round vesting.RoundIndex) (*big.Int, error) {
	blocked, err := l.store.Blocked(wallet)
	if err != nil {
		return nil, err
	}
	if blocked {
		l.log.Debug("claim rejected: wallet blocked", zap.Stringer("wallet", wallet))
		return nil, ErrBlockedWallet
	}

	r, err := l.schedule.Round(round)
	if err != nil {
		l.log.Debug("claim rejected: unsupported round",
			zap.Stringer("wallet", wallet), zap.Uint32("round", uint32(round)))
		return nil, err
	}
	total, err := l.schedule.Allocation(round, wallet)
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		l.log.Debug("claim rejected: not whitelisted",
			zap.Stringer("wallet", wallet), zap.Stringer("round", r))
		return nil, fmt.Errorf("%w: %s in %s", ErrNotWhitelisted, wallet, r)
	}

	unlock := l.locks.Lock(claimKey{round, wallet})
	defer unlock()

	claimed, err := l.store.Claimed(round, wallet)
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	delta := vesting.Unlocked(total, r, now)
	delta.Sub(delta, claimed)
	if delta.Sign() <= 0 {
		l.log.Debug("claim rejected: nothing to claim",
			zap.Stringer("wallet", wallet), zap.Stringer("round", r), zap.Stringer("claimed", claimed))
		return nil, ErrNothingToClaim
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	receipt := &Receipt{Wallet: wallet, Round: round, Amount: delta, At: now}
	if err := l.settle(ctx, receipt, r); err != nil {
		return nil, err
	}

	l.log.Info("tokens claimed",
		zap.Uint64("receipt", receipt.ID),
		zap.Stringer("wallet", wallet),
		zap.Stringer("round", r),
		zap.Stringer("amount", delta),
	)
	return new(big.Int).Set(delta), nil
}

// settle records receipt and hands it to the Transferer. A failed transfer
// reverts the commit.
func (l *Ledger) settle(ctx context.Context, receipt *Receipt, r vesting.Round) error {
	if l.queued != nil {
		if err := l.queued.CommitQueued(receipt); err != nil {
			return fmt.Errorf("ledger: commit claim: %w", err)
		}
		return nil
	}

	if err := l.store.Commit(receipt); err != nil {
		return fmt.Errorf("ledger: commit claim: %w", err)
	}
	err := l.transfer.Transfer(ctx, receipt)
	if err == nil {
		return nil
	}
	if rerr := l.store.Revert(receipt); rerr != nil {
		l.log.Error("claim rollback failed",
			zap.Uint64("receipt", receipt.ID),
			zap.Stringer("wallet", receipt.Wallet),
			zap.Stringer("round", r),
			zap.Stringer("amount", receipt.Amount),
			zap.Error(rerr),
		)
		return fmt.Errorf("%w: %w (rollback failed: %v)", ErrTransferFailed, err, rerr)
	}
	l.log.Warn("claim reverted after transfer failure",
		zap.Stringer("wallet", receipt.Wallet), zap.Stringer("round", r), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}

func claimResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrBlockedWallet):
		return resultBlocked
	case errors.Is(err, ErrUnsupportedRound):
		return resultUnsupported
	case errors.Is(err, ErrNotWhitelisted):
		return resultNotWhitelisted
	case errors.Is(err, ErrNothingToClaim):
		return resultNothing
	case errors.Is(err, ErrTransferFailed):
		return resultTransferFailed
	default:
		return resultError
	}
}

// ClaimAll claims every round in which wallet has a positive claimable
// amount and returns the amounts paid per round. On error the rounds already
// paid are returned alongside it.
func (l *Ledger) ClaimAll(ctx context.Context, wallet address.Address) (map[vesting.RoundIndex]*big.Int, error) {
	blocked, err := l.store.Blocked(wallet)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlockedWallet
	}
	if !l.schedule.Participates(wallet) {
		return nil, fmt.Errorf("%w: %s", ErrNotWhitelisted, wallet)
	}

	paid := make(map[vesting.RoundIndex]*big.Int)
	for _, r := range l.schedule.Rounds() {
		amount, err := l.Claim(ctx, wallet, r.Index)
		switch {
		case err == nil:
			paid[r.Index] = amount
		case errors.Is(err, ErrNotWhitelisted), errors.Is(err, ErrNothingToClaim):
		default:
			return paid, err
		}
	}
	if len(paid) == 0 {
		return nil, ErrNothingToClaim
	}
	return paid, nil
}

// Claimable returns what Claim would pay wallet in round right now.
func (l *Ledger) Claimable(wallet address.Address, round vesting.RoundIndex) (*big.Int, error) {
	st, err := l.Status(wallet, round)
	if err != nil {
		return nil, err
	}
	return st.Claimable, nil
}

// Status returns wallet's derived position in round right now.
func (l *Ledger) Status(wallet address.Address, round vesting.RoundIndex) (vesting.Status, error) {
	r, err := l.schedule.Round(round)
	if err != nil {
		return vesting.Status{}, err
	}
	total, err := l.schedule.Allocation(round, wallet)
	if err != nil {
		return vesting.Status{}, err
	}
	claimed, err := l.store.Claimed(round, wallet)
	if err != nil {
		return vesting.Status{}, err
	}
	return vesting.Derive(r, total, claimed, l.clock.Now()), nil
}

// Claimed returns the total wallet has claimed in round.
func (l *Ledger) Claimed(wallet address.Address, round vesting.RoundIndex) (*big.Int, error) {
	if _, err := l.schedule.Round(round); err != nil {
		return nil, err
	}
	return l.store.Claimed(round, wallet)
}

// BalanceOf returns the sum over all rounds of allocation minus claimed, i.e.
// everything still held for wallet whether unlocked or not.
func (l *Ledger) BalanceOf(wallet address.Address) (*big.Int, error) {
	balance := new(big.Int)
	for _, r := range l.schedule.Rounds() {
		total, err := l.schedule.Allocation(r.Index, wallet)
		if err != nil {
			return nil, err
		}
		if total.Sign() == 0 {
			continue
		}
		claimed, err := l.store.Claimed(r.Index, wallet)
		if err != nil {
			return nil, err
		}
		balance.Add(balance, total.Sub(total, claimed))
	}
	return balance, nil
}

// UnlockedAmount returns wallet's unlocked amount in round right now.
func (l *Ledger) UnlockedAmount(wallet address.Address, round vesting.RoundIndex) (*big.Int, error) {
	return l.calc.UnlockedAmount(wallet, round, l.clock.Now())
}

// Receipts returns wallet's claim receipts ordered by ID.
func (l *Ledger) Receipts(wallet address.Address) ([]*Receipt, error) {
	return l.store.Receipts(wallet)
}

// LockAddress adds wallet to the blacklist. Locking a blocked wallet is a
// no-op.
func (l *Ledger) LockAddress(wallet address.Address) error {
	changed, err := l.store.SetBlocked(wallet, true)
	if err != nil {
		return err
	}
	if changed {
		blockedWallets.Inc()
		l.log.Info("wallet blocked", zap.Stringer("wallet", wallet))
	}
	return nil
}

// UnlockAddress removes wallet from the blacklist. Unlocking a wallet that is
// not blocked is a no-op.
func (l *Ledger) UnlockAddress(wallet address.Address) error {
	changed, err := l.store.SetBlocked(wallet, false)
	if err != nil {
		return err
	}
	if changed {
		blockedWallets.Dec()
		l.log.Info("wallet unblocked", zap.Stringer("wallet", wallet))
	}
	return nil
}

// Blocked reports whether wallet is on the blacklist.
func (l *Ledger) Blocked(wallet address.Address) (bool, error) {
	return l.store.Blocked(wallet)
}
