package authority

import "errors"

var (
	// ErrUnauthorized indicates the command was not signed by the owner key.
	ErrUnauthorized = errors.New("authority: signer is not the owner")

	// ErrBadSignature indicates a malformed key or a signature that does not
	// verify against the command digest.
	ErrBadSignature = errors.New("authority: invalid signature")

	// ErrReplayedNonce indicates the nonce is not above the last accepted one.
	ErrReplayedNonce = errors.New("authority: nonce already used")

	// ErrUnknownAction indicates an action other than lock or unlock.
	ErrUnknownAction = errors.New("authority: unknown action")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("authority: required parameter is nil")
)
