package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Holdings maps a symbol to the number of shares owned.
// An entry never holds a quantity of zero or less: Sell removes it instead.
type Holdings map[string]int64

// Quantity returns the number of shares held, zero when absent
func (h Holdings) Quantity(symbol string) int64 {
	return h[symbol]
}

// Has reports whether any share of symbol is held
func (h Holdings) Has(symbol string) bool {
	_, ok := h[symbol]
	return ok
}

// Symbols returns the held symbols in lexical order
func (h Holdings) Symbols() []string {
	symbols := make([]string, 0, len(h))
	for symbol := range h {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Portfolio holds the cash balance and share holdings of one user
// CashBalance is never negative: buys that would overdraw it are rejected
type Portfolio struct {
	CashBalance decimal.Decimal
	Holdings    Holdings
}

// NewPortfolio creates a portfolio with the given cash and no holdings
func NewPortfolio(initialCash decimal.Decimal) *Portfolio {
	return &Portfolio{
		CashBalance: initialCash,
		Holdings:    make(Holdings),
	}
}

// Buy spends price*quantity of cash on shares of stock.
// No partial fills: on error the portfolio is unchanged.
func (p *Portfolio) Buy(stock *Stock, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !stock.Price.IsPositive() {
		return fmt.Errorf("%w: %s at %s", ErrInvalidPrice, stock.Symbol, stock.Price)
	}
	return p.acquire(stock, quantity)
}

// DepositShares credits shares through the same path as Buy without validating the price.
// It is used when restoring a snapshot against zero-price records, where the cost is zero.
func (p *Portfolio) DepositShares(stock *Stock, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return p.acquire(stock, quantity)
}

func (p *Portfolio) acquire(stock *Stock, quantity int64) error {
	if held := p.Holdings.Quantity(stock.Symbol); held > math.MaxInt64-quantity {
		return fmt.Errorf("%w: %s holding of %d cannot grow by %d", ErrInvalidQuantity, stock.Symbol, held, quantity)
	}
	cost := stock.Price.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(p.CashBalance) {
		return fmt.Errorf("%w: cost %s exceeds cash %s", ErrInsufficientFunds, cost, p.CashBalance)
	}
	if p.Holdings == nil {
		p.Holdings = make(Holdings)
	}
	p.CashBalance = p.CashBalance.Sub(cost)
	p.Holdings[stock.Symbol] += quantity
	return nil
}

// Sell credits price*quantity of cash for shares of stock.
// When the holding reaches zero its entry is removed from Holdings.
func (p *Portfolio) Sell(stock *Stock, quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	held := p.Holdings.Quantity(stock.Symbol)
	if held < quantity {
		return fmt.Errorf("%w: %s holds %d, requested %d", ErrInsufficientHoldings, stock.Symbol, held, quantity)
	}

	p.CashBalance = p.CashBalance.Add(stock.Price.Mul(decimal.NewFromInt(quantity)))
	if remaining := held - quantity; remaining == 0 {
		delete(p.Holdings, stock.Symbol)
	} else {
		p.Holdings[stock.Symbol] = remaining
	}
	return nil
}

// Deposit adds cash to the portfolio
func (p *Portfolio) Deposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: deposit of %s", ErrInvalidAmount, amount)
	}
	p.CashBalance = p.CashBalance.Add(amount)
	return nil
}

// Valuation returns cash plus the market value of every holding the registry still lists.
// Holdings of unlisted symbols contribute nothing.
func (p *Portfolio) Valuation(registry StockRegistry) decimal.Decimal {
	total := p.CashBalance
	for symbol, quantity := range p.Holdings {
		stock, ok := registry.Lookup(symbol)
		if !ok {
			continue
		}
		total = total.Add(stock.Price.Mul(decimal.NewFromInt(quantity)))
	}
	return total
}

// Clone returns a deep copy of the portfolio
func (p *Portfolio) Clone() *Portfolio {
	holdings := make(Holdings, len(p.Holdings))
	for symbol, quantity := range p.Holdings {
		holdings[symbol] = quantity
	}
	return &Portfolio{
		CashBalance: p.CashBalance,
		Holdings:    holdings,
	}
}
