package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

// HoldingLine represents one holding in a portfolio summary
type HoldingLine struct {
	Symbol   string
	Name     string
	Quantity int64
	Price    decimal.Decimal // Zero when the symbol is no longer listed
	Value    decimal.Decimal
	Listed   bool
}

// PortfolioSummary is the read-only projection of one user for display
type PortfolioSummary struct {
	Username     string
	Cash         decimal.Decimal
	Holdings     []HoldingLine
	TotalValue   decimal.Decimal
	Transactions []string // Rendered history, oldest first
}

// MarketQuote is one line of the market snapshot
type MarketQuote struct {
	Symbol        string
	Name          string
	Price         decimal.Decimal
	PercentChange decimal.Decimal
}

// DashboardService handles read-only projections of the ledger and the market
type DashboardService struct {
	Trading  *trading.TradingService
	Registry domain.StockRegistry
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(tradingService *trading.TradingService, registry domain.StockRegistry) *DashboardService {
	return &DashboardService{
		Trading:  tradingService,
		Registry: registry,
	}
}

// GetPortfolioSummary builds the summary of username at current registry prices
// Logic:
//   - Holdings: every held symbol, valued at the listed price (zero when unlisted)
//   - TotalValue: cash + value of listed holdings
func (s *DashboardService) GetPortfolioSummary(ctx context.Context, username string) (*PortfolioSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var summary *PortfolioSummary
	err := s.Trading.View(username, func(user *domain.User) {
		portfolio := user.Portfolio
		summary = &PortfolioSummary{
			Username:     user.Username,
			Cash:         portfolio.CashBalance,
			Holdings:     make([]HoldingLine, 0, len(portfolio.Holdings)),
			TotalValue:   portfolio.Valuation(s.Registry),
			Transactions: user.Log.Lines(),
		}

		for _, symbol := range portfolio.Holdings.Symbols() {
			line := HoldingLine{
				Symbol:   symbol,
				Name:     symbol,
				Quantity: portfolio.Holdings[symbol],
				Price:    decimal.Zero,
				Value:    decimal.Zero,
			}
			if stock, ok := s.Registry.Lookup(symbol); ok {
				line.Name = stock.Name
				line.Price = stock.Price
				line.Value = stock.Price.Mul(decimal.NewFromInt(line.Quantity))
				line.Listed = true
			}
			summary.Holdings = append(summary.Holdings, line)
		}
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// GetMarketSnapshot lists every listing with its percent change since the last update
func (s *DashboardService) GetMarketSnapshot(ctx context.Context) ([]MarketQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stocks := s.Registry.All()
	quotes := make([]MarketQuote, 0, len(stocks))
	for _, stock := range stocks {
		quotes = append(quotes, MarketQuote{
			Symbol:        stock.Symbol,
			Name:          stock.Name,
			Price:         stock.Price,
			PercentChange: stock.Change,
		})
	}
	return quotes, nil
}
