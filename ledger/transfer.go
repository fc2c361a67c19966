package ledger

import "context"

// Transferer moves claimed tokens to the beneficiary. The ledger calls it
// after the claim is committed and reverts the commit if it returns an error.
type Transferer interface {
	Transfer(ctx context.Context, r *Receipt) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, r *Receipt) error

// Transfer calls f(ctx, r).
func (f TransferFunc) Transfer(ctx context.Context, r *Receipt) error {
	return f(ctx, r)
}
