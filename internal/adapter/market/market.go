// Package market provides the simulated stock registry: a fixed set of listings whose
// prices follow a random walk.
package market

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// maxStep is the largest absolute price move of a single update
var maxStep = decimal.NewFromInt(10)

// minPrice keeps a random walk from reaching zero
var minPrice = decimal.RequireFromString("0.01")

// DefaultListings returns the listings the market opens with
func DefaultListings() []domain.Stock {
	return []domain.Stock{
		{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromInt(150)},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Price: decimal.NewFromInt(2800)},
		{Symbol: "MSFT", Name: "Microsoft Corp.", Price: decimal.NewFromInt(300)},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Price: decimal.NewFromInt(3500)},
	}
}

// Market implements domain.StockRegistry over an in-memory set of listings
type Market struct {
	mu     sync.RWMutex
	stocks map[string]*domain.Stock
	rng    *rand.Rand
	logger zerolog.Logger
}

// Option configures a Market
type Option func(*Market)

// WithRand sets the random source driving price updates
func WithRand(rng *rand.Rand) Option {
	return func(m *Market) { m.rng = rng }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Market) { m.logger = logger }
}

// NewMarket creates a market listing the given stocks
func NewMarket(listings []domain.Stock, opts ...Option) (*Market, error) {
	m := &Market{
		stocks: make(map[string]*domain.Stock, len(listings)),
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for i := range listings {
		stock := listings[i]
		if err := stock.Validate(); err != nil {
			return nil, fmt.Errorf("invalid listing %q: %w", stock.Symbol, err)
		}
		if _, dup := m.stocks[stock.Symbol]; dup {
			return nil, fmt.Errorf("duplicate listing %q", stock.Symbol)
		}
		m.stocks[stock.Symbol] = &stock
	}
	return m, nil
}

// Lookup returns a copy of the listing for symbol
func (m *Market) Lookup(symbol string) (*domain.Stock, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stock, ok := m.stocks[symbol]
	if !ok {
		return nil, false
	}
	cp := *stock
	return &cp, true
}

// All returns a copy of every listing, ordered by symbol
func (m *Market) All() []*domain.Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Stock, 0, len(m.stocks))
	for _, stock := range m.stocks {
		cp := *stock
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// UpdatePrices moves every price by a uniform step in [-5, 5) and records the percent change
func (m *Market) UpdatePrices() {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbols := make([]string, 0, len(m.stocks))
	for symbol := range m.stocks {
		symbols = append(symbols, symbol)
	}
	// Draw in symbol order so a seeded source gives reproducible walks
	sort.Strings(symbols)

	for _, symbol := range symbols {
		stock := m.stocks[symbol]
		step := decimal.NewFromFloat(m.rng.Float64() - 0.5).Mul(maxStep)
		updatePrice(stock, stock.Price.Add(step))
	}
	m.logger.Debug().Int("listings", len(symbols)).Msg("market prices updated")
}

func updatePrice(stock *domain.Stock, newPrice decimal.Decimal) {
	if newPrice.LessThan(minPrice) {
		newPrice = minPrice
	}
	stock.Change = newPrice.Sub(stock.Price).Div(stock.Price).Mul(decimal.NewFromInt(100))
	stock.Price = newPrice
}

// Run updates prices every interval until ctx is done
func (m *Market) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.UpdatePrices()
		}
	}
}
