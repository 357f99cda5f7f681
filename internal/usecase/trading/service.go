package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/metrics"
)

// TradingService handles registration and order execution against the user directory.
// It owns the directory: every mutation goes through its methods and is followed by a full save.
type TradingService struct {
	mu        sync.Mutex
	directory *domain.Directory

	Registry domain.StockRegistry
	Repo     domain.DirectoryRepository

	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a TradingService
type Option func(*TradingService)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *TradingService) { s.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TradingService) { s.metrics = m }
}

// WithClock sets the source of execution timestamps
func WithClock(now func() time.Time) Option {
	return func(s *TradingService) { s.now = now }
}

// NewTradingService creates a new TradingService instance with an empty directory
func NewTradingService(registry domain.StockRegistry, repo domain.DirectoryRepository, opts ...Option) *TradingService {
	s := &TradingService{
		directory: domain.NewDirectory(),
		Registry:  registry,
		Repo:      repo,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the directory with the persisted snapshot.
// On failure the service keeps an empty directory and the error is returned for reporting only.
func (s *TradingService) Load(ctx context.Context) error {
	dir, err := s.Repo.Load(ctx, s.Registry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.directory = domain.NewDirectory()
		s.metrics.SetUsers(0)
		return fmt.Errorf("failed to load snapshot, starting empty: %w", err)
	}
	s.directory = dir
	s.metrics.SetUsers(dir.Len())
	return nil
}

// RegisterUser creates a user with empty holdings and the given cash.
// An existing user of the same name is replaced, not merged.
func (s *TradingService) RegisterUser(ctx context.Context, username string, initialBalance decimal.Decimal) (*domain.User, error) {
	user, err := domain.NewUser(username, initialBalance)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.directory.Get(username); exists {
		s.logger.Warn().Str("user", username).Msg("replacing existing user")
	}
	s.directory.Put(user)
	s.metrics.SetUsers(s.directory.Len())
	s.logger.Info().Str("user", username).Str("cash", initialBalance.String()).Msg("user registered")

	s.save(ctx)
	return user, nil
}

// BuyStock buys quantity shares of symbol for username at the current registry price
func (s *TradingService) BuyStock(ctx context.Context, username, symbol string, quantity int64) (*domain.Transaction, error) {
	return s.execute(ctx, domain.TransactionKindBuy, username, symbol, quantity)
}

// SellStock sells quantity shares of symbol for username at the current registry price
func (s *TradingService) SellStock(ctx context.Context, username, symbol string, quantity int64) (*domain.Transaction, error) {
	return s.execute(ctx, domain.TransactionKindSell, username, symbol, quantity)
}

// execute runs one order.
// Logic:
//  1. Resolve the user and the listing; either missing rejects the order
//  2. Apply it to the portfolio; a rejection leaves no trace
//  3. Record the trade at the execution-time price and save the directory
func (s *TradingService) execute(ctx context.Context, kind domain.TransactionKind, username, symbol string, quantity int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.apply(kind, username, symbol, quantity)
	s.metrics.ObserveTrade(string(kind), err == nil)
	if err != nil {
		s.logger.Info().Err(err).
			Str("user", username).
			Str("side", string(kind)).
			Str("symbol", symbol).
			Int64("quantity", quantity).
			Msg("order rejected")
		return nil, err
	}

	s.logger.Info().
		Str("user", username).
		Str("side", string(kind)).
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Str("price", tx.Price.String()).
		Msg("order executed")

	s.save(ctx)
	return tx, nil
}

func (s *TradingService) apply(kind domain.TransactionKind, username, symbol string, quantity int64) (*domain.Transaction, error) {
	user, ok := s.directory.Get(username)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownUser, username)
	}
	stock, ok := s.Registry.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}

	var err error
	switch kind {
	case domain.TransactionKindBuy:
		err = user.Portfolio.Buy(stock, quantity)
	case domain.TransactionKindSell:
		err = user.Portfolio.Sell(stock, quantity)
	default:
		err = fmt.Errorf("unsupported order side %q", kind)
	}
	if err != nil {
		return nil, err
	}

	tx := domain.NewTransaction(kind, stock.Symbol, quantity, stock.Price, s.now())
	user.Log.Append(tx)
	return tx, nil
}

// save writes the whole directory. Failures are logged and counted but never returned:
// the in-memory directory stays authoritative for the rest of the session.
// A cancelled caller does not stop a committed change from being saved.
// Must be called with s.mu held.
func (s *TradingService) save(ctx context.Context) {
	err := s.Repo.Save(context.WithoutCancel(ctx), s.directory)
	s.metrics.ObserveSave(err)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save snapshot")
	}
}

// HasUser reports whether username is registered
func (s *TradingService) HasUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.directory.Get(username)
	return ok
}

// Usernames returns every registered username in lexical order
func (s *TradingService) Usernames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.directory.Usernames()
}

// View runs fn with the user registered as username while holding the directory lock.
// fn must not retain or modify the user.
func (s *TradingService) View(username string, fn func(*domain.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.directory.Get(username)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownUser, username)
	}
	fn(user)
	return nil
}
