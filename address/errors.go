package address

import "errors"

var (
	// ErrInvalidAddress indicates the input is not 20 bytes of hex.
	ErrInvalidAddress = errors.New("address: invalid address")

	// ErrBadChecksum indicates a mixed-case address fails EIP-55 validation.
	ErrBadChecksum = errors.New("address: EIP-55 checksum mismatch")
)
