package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/adapter/market"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/metrics"
)

// MockDirectoryRepository is a mock implementation of DirectoryRepository for testing
type MockDirectoryRepository struct {
	mock.Mock
}

func (m *MockDirectoryRepository) Load(ctx context.Context, registry domain.StockRegistry) (*domain.Directory, error) {
	args := m.Called(ctx, registry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Directory), args.Error(1)
}

func (m *MockDirectoryRepository) Save(ctx context.Context, dir *domain.Directory) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

var executedAt = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

func newTestMarket(t *testing.T) *market.Market {
	t.Helper()
	m, err := market.NewMarket([]domain.Stock{
		{Symbol: "X", Name: "Example Corp.", Price: decimal.RequireFromString("150.00")},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Price: decimal.RequireFromString("3000.00")},
	})
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T, repo *MockDirectoryRepository, opts ...Option) *TradingService {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return executedAt })}, opts...)
	return NewTradingService(newTestMarket(t), repo, opts...)
}

func cashOf(t *testing.T, s *TradingService, username string) decimal.Decimal {
	t.Helper()
	var cash decimal.Decimal
	require.NoError(t, s.View(username, func(u *domain.User) { cash = u.Portfolio.CashBalance }))
	return cash
}

func TestTradingService_AliceScenario(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(t, repo)

	_, err := service.RegisterUser(ctx, "alice", decimal.RequireFromString("10000.00"))
	require.NoError(t, err)

	// Buy 10 at 150
	tx, err := service.BuyStock(ctx, "alice", "X", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionKindBuy, tx.Kind)
	assert.True(t, decimal.RequireFromString("150").Equal(tx.Price))
	assert.Equal(t, executedAt, tx.Timestamp)
	assert.True(t, decimal.NewFromInt(8500).Equal(cashOf(t, service, "alice")))

	// Selling 15 of 10 is rejected without side effects
	_, err = service.SellStock(ctx, "alice", "X", 15)
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
	require.NoError(t, service.View("alice", func(u *domain.User) {
		assert.True(t, decimal.NewFromInt(8500).Equal(u.Portfolio.CashBalance))
		assert.Equal(t, int64(10), u.Portfolio.Holdings.Quantity("X"))
		assert.Equal(t, 1, u.Log.Len())
	}))

	// Sell all 10
	_, err = service.SellStock(ctx, "alice", "X", 10)
	require.NoError(t, err)
	require.NoError(t, service.View("alice", func(u *domain.User) {
		assert.True(t, decimal.NewFromInt(10000).Equal(u.Portfolio.CashBalance))
		assert.False(t, u.Portfolio.Holdings.Has("X"))
		assert.Equal(t, 2, u.Log.Len())
	}))

	// register + two executed trades; the rejected sell does not save
	repo.AssertNumberOfCalls(t, "Save", 3)
}

func TestTradingService_BuyExceedingCash(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(t, repo)

	_, err := service.RegisterUser(ctx, "alice", decimal.NewFromInt(10000))
	require.NoError(t, err)

	// 5 * 3000 = 15000 > 10000
	tx, err := service.BuyStock(ctx, "alice", "AMZN", 5)

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, domain.IsRejection(err))
	assert.Nil(t, tx)
	require.NoError(t, service.View("alice", func(u *domain.User) {
		assert.True(t, decimal.NewFromInt(10000).Equal(u.Portfolio.CashBalance))
		assert.Empty(t, u.Portfolio.Holdings)
		assert.Equal(t, 0, u.Log.Len())
	}))
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestTradingService_UnknownUserOrSymbol(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(t, repo)

	_, err := service.BuyStock(ctx, "ghost", "X", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownUser)

	_, err = service.RegisterUser(ctx, "alice", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = service.BuyStock(ctx, "alice", "TSLA", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)
	_, err = service.SellStock(ctx, "alice", "TSLA", 1)
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestTradingService_InvalidQuantity(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(t, repo)
	_, err := service.RegisterUser(ctx, "alice", decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = service.BuyStock(ctx, "alice", "X", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = service.SellStock(ctx, "alice", "X", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestTradingService_RegisterOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(t, repo)

	_, err := service.RegisterUser(ctx, "alice", decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = service.BuyStock(ctx, "alice", "X", 2)
	require.NoError(t, err)

	_, err = service.RegisterUser(ctx, "alice", decimal.NewFromInt(50))
	require.NoError(t, err)

	require.NoError(t, service.View("alice", func(u *domain.User) {
		assert.True(t, decimal.NewFromInt(50).Equal(u.Portfolio.CashBalance))
		assert.Empty(t, u.Portfolio.Holdings)
		assert.Equal(t, 0, u.Log.Len())
	}))
}

func TestTradingService_RegisterInvalid(t *testing.T) {
	repo := new(MockDirectoryRepository)
	service := newTestService(t, repo)

	_, err := service.RegisterUser(context.Background(), "", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)

	_, err = service.RegisterUser(context.Background(), "bob", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTradingService_SaveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(domain.ErrPersistenceIO)
	m := metrics.New()
	service := newTestService(t, repo, WithMetrics(m))

	_, err := service.RegisterUser(ctx, "alice", decimal.NewFromInt(1000))
	require.NoError(t, err)
	tx, err := service.BuyStock(ctx, "alice", "X", 1)
	require.NoError(t, err)
	require.NotNil(t, tx)

	// In-memory state stays authoritative
	assert.True(t, decimal.NewFromInt(850).Equal(cashOf(t, service, "alice")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Saves.WithLabelValues(metrics.SaveFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("BUY", metrics.OutcomeExecuted)))
}

func TestTradingService_Load(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	service := newTestService(t, repo)

	dir := domain.NewDirectory()
	alice, _ := domain.NewUser("alice", decimal.NewFromInt(42))
	dir.Put(alice)
	repo.On("Load", ctx, service.Registry).Return(dir, nil)

	require.NoError(t, service.Load(ctx))

	assert.True(t, service.HasUser("alice"))
	assert.Equal(t, []string{"alice"}, service.Usernames())
	assert.True(t, decimal.NewFromInt(42).Equal(cashOf(t, service, "alice")))
}

func TestTradingService_LoadFailureStartsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	service := newTestService(t, repo)
	repo.On("Load", ctx, service.Registry).Return(nil, errors.New("permission denied"))

	err := service.Load(ctx)

	assert.Error(t, err)
	assert.Empty(t, service.Usernames())
	assert.ErrorIs(t, service.View("alice", func(*domain.User) {}), domain.ErrUnknownUser)
}

func TestTradingService_ConcurrentOrders(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDirectoryRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(t, repo)

	// Enough cash for exactly 50 shares at 150
	_, err := service.RegisterUser(ctx, "alice", decimal.NewFromInt(7500))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	executed := 0
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.BuyStock(ctx, "alice", "X", 1); err == nil {
				mu.Lock()
				executed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, executed)
	require.NoError(t, service.View("alice", func(u *domain.User) {
		assert.True(t, u.Portfolio.CashBalance.IsZero())
		assert.Equal(t, int64(50), u.Portfolio.Holdings.Quantity("X"))
		assert.Equal(t, 50, u.Log.Len())
	}))
}
