// Package cli provides the interactive console front end for one active user.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/dashboard"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

// PriceUpdater moves market prices on demand
type PriceUpdater interface {
	UpdatePrices()
}

// MenuOption represents a menu choice
type MenuOption struct {
	Number  int
	Title   string
	Handler func(ctx context.Context) error
}

// Menu is the numbered console menu operating on a single active user
type Menu struct {
	scanner *bufio.Scanner
	out     io.Writer
	options []MenuOption
	exit    int

	trading   *trading.TradingService
	dashboard *dashboard.DashboardService
	market    PriceUpdater
	username  string
	currency  string
	logger    zerolog.Logger
}

// NewMenu creates a menu reading choices from in and writing to out
func NewMenu(
	in io.Reader,
	out io.Writer,
	tradingService *trading.TradingService,
	dashboardService *dashboard.DashboardService,
	market PriceUpdater,
	username, currency string,
	logger zerolog.Logger,
) *Menu {
	m := &Menu{
		scanner:   bufio.NewScanner(in),
		out:       out,
		trading:   tradingService,
		dashboard: dashboardService,
		market:    market,
		username:  username,
		currency:  currency,
		logger:    logger,
	}

	m.options = []MenuOption{
		{Number: 1, Title: "Display Market Data", Handler: m.handleMarket},
		{Number: 2, Title: "Buy Stock", Handler: m.handleBuy},
		{Number: 3, Title: "Sell Stock", Handler: m.handleSell},
		{Number: 4, Title: "View Portfolio", Handler: m.handlePortfolio},
		{Number: 5, Title: "Update Market Prices", Handler: m.handleUpdatePrices},
		{Number: 6, Title: "Exit", Handler: m.handleExit},
	}
	m.exit = 6
	return m
}

// Run starts the interactive menu loop. It returns when the user exits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	m.printf("Welcome to the Stock Trading Platform, %s\n", m.username)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printMenu()
		m.printf("Choose an option (1-%d): ", len(m.options))

		input, ok := m.readLine()
		if !ok {
			return m.scanner.Err()
		}
		if input == "" {
			continue
		}

		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(m.options) {
			m.printf("Invalid choice: %s. Please enter a number between 1-%d.\n\n", input, len(m.options))
			continue
		}

		option := m.options[choice-1]
		if err := option.Handler(ctx); err != nil {
			m.printf("Error: %v\n", err)
			m.logger.Error().Err(err).Str("menu_option", option.Title).Msg("menu handler failed")
		}

		if choice == m.exit {
			return nil
		}
		m.printf("\n")
	}
}

func (m *Menu) printMenu() {
	m.printf("\n--- Stock Trading Platform ---\n")
	for _, option := range m.options {
		m.printf("%d. %s\n", option.Number, option.Title)
	}
}

func (m *Menu) handleMarket(ctx context.Context) error {
	quotes, err := m.dashboard.GetMarketSnapshot(ctx)
	if err != nil {
		return err
	}

	m.printf("\nMarket Data:\n")
	for _, q := range quotes {
		m.printf("%-6s %-20s %14s %8s%%\n", q.Symbol, q.Name, m.formatMoney(q.Price), q.PercentChange.StringFixed(2))
	}
	return nil
}

func (m *Menu) handleBuy(ctx context.Context) error {
	return m.placeOrder(ctx, "buy", m.trading.BuyStock)
}

func (m *Menu) handleSell(ctx context.Context) error {
	return m.placeOrder(ctx, "sell", m.trading.SellStock)
}

// placeOrder prompts for a symbol and quantity, then runs the order.
// Rejections are printed and never returned as errors.
func (m *Menu) placeOrder(
	ctx context.Context,
	verb string,
	order func(ctx context.Context, username, symbol string, quantity int64) (*domain.Transaction, error),
) error {
	m.printf("Enter stock symbol to %s: ", verb)
	symbol, ok := m.readLine()
	if !ok {
		return nil
	}
	symbol = strings.ToUpper(symbol)

	m.printf("Enter quantity: ")
	rawQuantity, ok := m.readLine()
	if !ok {
		return nil
	}
	quantity, err := strconv.ParseInt(rawQuantity, 10, 64)
	if err != nil {
		m.printf("Invalid quantity: %s\n", rawQuantity)
		return nil
	}

	tx, err := order(ctx, m.username, symbol, quantity)
	if err != nil {
		if domain.IsRejection(err) {
			m.printf("Order rejected: %v\n", err)
			return nil
		}
		return err
	}

	total := tx.Price.Mul(decimal.NewFromInt(tx.Quantity))
	m.printf("Order executed: %s %d %s at %s (total %s)\n",
		tx.Kind, tx.Quantity, tx.Symbol, m.formatMoney(tx.Price), m.formatMoney(total))
	return nil
}

func (m *Menu) handlePortfolio(ctx context.Context) error {
	summary, err := m.dashboard.GetPortfolioSummary(ctx, m.username)
	if err != nil {
		return err
	}

	m.printf("\nPortfolio of %s\n", summary.Username)
	m.printf("Cash Balance: %s\n", m.formatMoney(summary.Cash))
	m.printf("Holdings:\n")
	if len(summary.Holdings) == 0 {
		m.printf("  (none)\n")
	}
	for _, h := range summary.Holdings {
		if !h.Listed {
			m.printf("  %-6s %6d shares  (not listed)\n", h.Symbol, h.Quantity)
			continue
		}
		m.printf("  %-6s %6d shares  %14s\n", h.Symbol, h.Quantity, m.formatMoney(h.Value))
	}
	m.printf("Total Portfolio Value: %s\n", m.formatMoney(summary.TotalValue))

	m.printf("Transaction History:\n")
	for _, line := range summary.Transactions {
		m.printf("  %s\n", line)
	}
	return nil
}

func (m *Menu) handleUpdatePrices(ctx context.Context) error {
	m.market.UpdatePrices()
	m.printf("Market prices updated.\n")
	return m.handleMarket(ctx)
}

func (m *Menu) handleExit(context.Context) error {
	m.printf("Exiting. Goodbye!\n")
	return nil
}

// formatMoney renders amount in the configured currency.
// Unknown currency codes fall back to "CODE 0.00".
func (m *Menu) formatMoney(amount decimal.Decimal) string {
	cur := money.GetCurrency(m.currency)
	if cur == nil {
		return m.currency + " " + amount.StringFixed(2)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

func (m *Menu) readLine() (string, bool) {
	if !m.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.scanner.Text()), true
}

func (m *Menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}
