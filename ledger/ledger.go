package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// ErrTransfer indicates that a force transfer couldn't be simulated or
// submitted.
var ErrTransfer = errors.New("force transfer failed")

// Module moves funds out of accounts using an elevated signing identity.
// The signer is bound when the Module is created.
type Module interface {
	// ForceTransfer moves amount (minor units) from the from address to
	// Beneficiary() without the cooperation of the from account. If dryRun
	// is true, the transfer is only simulated and no state is committed.
	ForceTransfer(ctx context.Context, from string, amount *big.Int, dryRun bool) (Outcome, error)
	// Beneficiary returns the address of the signer, which receives the
	// transferred funds.
	Beneficiary() string
}

// Outcome describes a simulated or submitted force transfer.
type Outcome struct {
	From   string
	To     string
	Amount *big.Int
	DryRun bool
	// Ok is the simulated dispatch result on dry runs, and true once a
	// real transfer was acknowledged by the node.
	Ok bool
	// Hash of the submitted extrinsic. Empty on dry runs.
	Hash string
	// Detail carries extra information about the result, e.g. the raw
	// dry run response.
	Detail string
}

// TransferError is returned when a force transfer for an address fails.
type TransferError struct {
	Address string
	Amount  *big.Int
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("force transfer of %s from %s: %s", e.Amount, e.Address, e.Err)
}

// Unwrap exposes both ErrTransfer and the underlying error to errors.Is
// and errors.As.
func (e *TransferError) Unwrap() []error {
	return []error{ErrTransfer, e.Err}
}

// Cause returns the underlying error.
func (e *TransferError) Cause() error {
	return e.Err
}
