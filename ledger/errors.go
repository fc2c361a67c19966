package ledger

import (
	"errors"

	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

var (
	// ErrBlockedWallet indicates the wallet is on the blacklist.
	ErrBlockedWallet = errors.New("ledger: this wallet has been blocked")

	// ErrNotWhitelisted indicates the wallet has no allocation in the round.
	ErrNotWhitelisted = errors.New("ledger: wallet is not whitelisted for this round")

	// ErrNothingToClaim indicates nothing beyond the claimed total is unlocked.
	ErrNothingToClaim = errors.New("ledger: nothing to claim")

	// ErrTransferFailed indicates the token transfer failed and the claim was
	// rolled back.
	ErrTransferFailed = errors.New("ledger: token transfer failed")

	// ErrReceiptNotFound indicates no receipt or outbox entry has the given ID.
	ErrReceiptNotFound = errors.New("ledger: receipt not found")

	// ErrCorruptState indicates a store would hold a negative claimed total.
	ErrCorruptState = errors.New("ledger: claimed total would become negative")

	// ErrInvalidReceipt indicates a receipt without a positive amount.
	ErrInvalidReceipt = errors.New("ledger: receipt amount must be positive")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("ledger: required parameter is nil")

	// ErrUnsupportedRound is vesting.ErrUnsupportedRound, re-exported so
	// ledger callers can match every claim rejection from one package.
	ErrUnsupportedRound = vesting.ErrUnsupportedRound
)
