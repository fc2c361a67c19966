package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the length of a wallet address in bytes.
const Size = 20

// Address is a 20-byte account address as used by ERC-20 token ledgers.
type Address [Size]byte

// Zero is the all-zero address.
var Zero Address

// Parse decodes a hex address with or without the 0x prefix. Letter case is
// not checked; use ParseStrict to enforce the EIP-55 checksum.
func Parse(s string) (Address, error) {
	var a Address
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*Size {
		return a, fmt.Errorf("%w: %q has %d hex digits, want %d", ErrInvalidAddress, s, len(raw), 2*Size)
	}
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return Zero, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	return a, nil
}

// ParseStrict is like Parse but rejects mixed-case input whose letter case
// does not match the EIP-55 checksum. All-lower and all-upper input is
// accepted as unchecksummed.
func ParseStrict(s string) (Address, error) {
	a, err := Parse(s)
	if err != nil {
		return a, err
	}
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if raw == strings.ToLower(raw) || raw == strings.ToUpper(raw) {
		return a, nil
	}
	if want := a.Hex()[2:]; raw != want {
		return Zero, fmt.Errorf("%w: got %s, want 0x%s", ErrBadChecksum, s, want)
	}
	return a, nil
}

// MustParse is Parse for package-level fixtures; it panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// Hex returns the EIP-55 checksummed form, 0x-prefixed.
func (a Address) Hex() string {
	lower := hex.EncodeToString(a[:])

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := make([]byte, 2+len(lower))
	out[0], out[1] = '0', 'x'
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		// Nibble i of the digest decides the case of hex digit i.
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[2+i] = c
	}
	return string(out)
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
