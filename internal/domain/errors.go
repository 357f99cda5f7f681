package domain

import "errors"

// Trade validation outcomes. These are expected results of a buy or sell request
// and are reported to callers, never treated as failures of the process.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrUnknownUser          = errors.New("user not found")
	ErrUnknownSymbol        = errors.New("symbol not found")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("price must be positive")
)

// Input validation errors
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Persistence errors
var (
	ErrPersistenceIO     = errors.New("snapshot i/o failed")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// IsRejection reports whether err is an expected trade validation outcome
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientHoldings) ||
		errors.Is(err, ErrUnknownUser) ||
		errors.Is(err, ErrUnknownSymbol) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice)
}
