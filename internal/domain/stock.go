package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Stock represents a tradable listing in the domain layer
// The market owns price mutation; the ledger reads it at execution time only
type Stock struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
	Change decimal.Decimal // Percent change since the previous price update
}

// StockRegistry supplies the current price of every listed symbol
type StockRegistry interface {
	// Lookup returns the listing for symbol, or false if it is not listed
	Lookup(symbol string) (*Stock, bool)

	// All returns every listing, ordered by symbol
	All() []*Stock
}

// NewPlaceholderStock returns a zero-price record for a symbol the registry does not list.
// Restored holdings are credited against it so that no cash changes hands.
func NewPlaceholderStock(symbol string) *Stock {
	return &Stock{
		Symbol: symbol,
		Name:   symbol,
		Price:  decimal.Zero,
		Change: decimal.Zero,
	}
}

// Validate ensures the stock can be listed
func (s *Stock) Validate() error {
	if err := ValidateSymbol(s.Symbol); err != nil {
		return err
	}
	if !s.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// reservedSymbols would read back as snapshot markers when written as "<symbol>:<quantity>"
var reservedSymbols = map[string]bool{
	"USER":         true,
	"CASH":         true,
	"HOLDINGS":     true,
	"TRANSACTIONS": true,
	"END_USER":     true,
}

// ValidateSymbol rejects symbols that cannot be written to a holding line
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if strings.ContainsAny(symbol, ":\r\n") {
		return errors.New("symbol cannot contain ':' or line breaks")
	}
	if reservedSymbols[symbol] {
		return fmt.Errorf("symbol %q is reserved", symbol)
	}
	return nil
}
