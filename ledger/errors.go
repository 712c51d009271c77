package ledger

import "github.com/pkg/errors"

var (
	// ErrInsufficientFunds means coin selection could not cover the
	// requested value plus fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownColor means a color descriptor could not be resolved.
	ErrUnknownColor = errors.New("unknown color")

	// ErrSigning means an input could not be signed.
	ErrSigning = errors.New("signing failed")

	// ErrBroadcast means the ledger rejected the transaction.
	ErrBroadcast = errors.New("broadcast failed")

	// ErrInvalidTransaction means a transaction or spec handed to the
	// ledger is malformed.
	ErrInvalidTransaction = errors.New("invalid transaction")
)
