package authority

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/sha3"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
)

// domainTag prefixes every digest so admin signatures cannot be replayed as
// signatures over anything else.
const domainTag = "crowdsale-vesting/admin/v1"

// SignatureSize is the length of an encoded signature: R || S, 32 bytes each.
const SignatureSize = 64

// Action is an administrative operation on the ledger.
type Action uint8

const (
	ActionLock Action = iota + 1
	ActionUnlock
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionLock:
		return "lock"
	case ActionUnlock:
		return "unlock"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// ParseAction maps "lock" and "unlock" to their Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "lock":
		return ActionLock, nil
	case "unlock":
		return ActionUnlock, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Command is one administrative instruction.
type Command struct {
	Action Action
	Wallet address.Address
	Nonce  uint64
}

// Digest returns Keccak-256(domainTag || action || wallet || nonce), the
// 32-byte message the owner signs.
func (c Command) Digest() []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(domainTag))
	h.Write([]byte{byte(c.Action)})
	h.Write(c.Wallet[:])
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], c.Nonce)
	h.Write(n[:])
	return h.Sum(nil)
}

// SignedCommand is a Command with the signer's compressed public key and
// signature.
type SignedCommand struct {
	Command
	PubKey    []byte
	Signature []byte
}

// Sign signs cmd with priv.
func Sign(priv *ec.PrivateKey, cmd Command) (*SignedCommand, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	sig, err := priv.Sign(cmd.Digest())
	if err != nil {
		return nil, fmt.Errorf("authority: sign: %w", err)
	}
	out := make([]byte, SignatureSize)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:])
	return &SignedCommand{
		Command:   cmd,
		PubKey:    priv.PubKey().Compressed(),
		Signature: out,
	}, nil
}

// verify checks the signature against the embedded public key.
func (sc *SignedCommand) verify() (*ec.PublicKey, error) {
	pub, err := ec.PublicKeyFromBytes(sc.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrBadSignature, err)
	}
	if len(sc.Signature) != SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes, got %d", ErrBadSignature, SignatureSize, len(sc.Signature))
	}
	sig := &ec.Signature{
		R: new(big.Int).SetBytes(sc.Signature[:32]),
		S: new(big.Int).SetBytes(sc.Signature[32:]),
	}
	if !sig.Verify(sc.Digest(), pub) {
		return nil, ErrBadSignature
	}
	return pub, nil
}

// AddressOf returns the Ethereum-style address of pub: the last 20 bytes of
// Keccak-256 over the 64-byte uncompressed point X || Y.
func AddressOf(pub *ec.PublicKey) address.Address {
	var xy [64]byte
	pub.X.FillBytes(xy[:32])
	pub.Y.FillBytes(xy[32:])

	h := sha3.NewLegacyKeccak256()
	h.Write(xy[:])
	digest := h.Sum(nil)

	var a address.Address
	copy(a[:], digest[len(digest)-address.Size:])
	return a
}
