package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// User represents a registered trader: one portfolio and one transaction log, never shared
type User struct {
	Username  string
	Portfolio *Portfolio
	Log       *TransactionLog
}

// NewUser creates a user with the given cash, no holdings and an empty log
func NewUser(username string, initialCash decimal.Decimal) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance %s is negative", ErrInvalidAmount, initialCash)
	}

	return &User{
		Username:  username,
		Portfolio: NewPortfolio(initialCash),
		Log:       NewTransactionLog(),
	}, nil
}

// ValidateUsername rejects names that cannot round-trip through a USER: line
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidUsername)
	}
	if strings.ContainsAny(username, "\r\n") {
		return fmt.Errorf("%w: username cannot contain line breaks", ErrInvalidUsername)
	}
	return nil
}
