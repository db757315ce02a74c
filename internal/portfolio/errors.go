package portfolio

import "errors"

// Validation failures raised by the allocation engine. Callers are expected to
// fix their input and retry; nothing in this package recovers from them.
var (
	ErrInvalidSymbol          = errors.New("invalid symbol")
	ErrInvalidPrice           = errors.New("price must be greater than zero")
	ErrInstrumentNotFound     = errors.New("instrument not found")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrInsufficientQuantity   = errors.New("insufficient quantity")
	ErrNotFound               = errors.New("instrument not held")
	ErrAllocationSum          = errors.New("allocation must sum to 1")
	ErrInvalidAllocationValue = errors.New("allocation values must be in (0, 1]")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrNoTarget               = errors.New("no allocation target set")
	ErrEmptyHoldings          = errors.New("portfolio holds no instruments")
)
