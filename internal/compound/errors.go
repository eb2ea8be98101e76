package compound

import "errors"

var (
	// ErrUnauthorized is returned when an internal step is invoked by any
	// identity other than the contract's own.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoPairProxy is returned when a reward asset has no route to the pool.
	ErrNoPairProxy = errors.New("no pair proxy for asset")
	// ErrInvalidAsset is returned for malformed asset identities.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrInsufficientFunds is returned when a declared reward amount exceeds
	// the held balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned for negative or malformed fixed-point
	// inputs to the solver.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSlippage is returned when held balances drift outside the
	// configured tolerance of the pool reserve ratio.
	ErrSlippage = errors.New("slippage tolerance exceeded")
)
