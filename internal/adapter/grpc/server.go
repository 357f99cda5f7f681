package grpc

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/dashboard"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

// Server implements the TradingService gRPC server
type Server struct {
	TradingService   *trading.TradingService
	DashboardService *dashboard.DashboardService

	logger zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	tradingService *trading.TradingService,
	dashboardService *dashboard.DashboardService,
	logger zerolog.Logger,
) *Server {
	return &Server{
		TradingService:   tradingService,
		DashboardService: dashboardService,
		logger:           logger,
	}
}

// RegisterUser handles the RegisterUser RPC.
// Request: {username: string, initial_balance: string}
func (s *Server) RegisterUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(req, "username")
	if err != nil {
		return nil, err
	}
	rawBalance, err := stringField(req, "initial_balance")
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(rawBalance)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid initial_balance format: %v", err)
	}

	user, err := s.TradingService.RegisterUser(ctx, username, balance)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"username": user.Username,
		"cash":     user.Portfolio.CashBalance.String(),
	})
}

// BuyStock handles the BuyStock RPC.
// Request: {username: string, symbol: string, quantity: number}
func (s *Server) BuyStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.placeOrder(ctx, req, s.TradingService.BuyStock)
}

// SellStock handles the SellStock RPC.
// Request: {username: string, symbol: string, quantity: number}
func (s *Server) SellStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.placeOrder(ctx, req, s.TradingService.SellStock)
}

type orderFunc func(ctx context.Context, username, symbol string, quantity int64) (*domain.Transaction, error)

// placeOrder runs one order. Trade rejections are reported as ok=false with a reason,
// never as an RPC error.
func (s *Server) placeOrder(ctx context.Context, req *structpb.Struct, order orderFunc) (*structpb.Struct, error) {
	username, err := stringField(req, "username")
	if err != nil {
		return nil, err
	}
	symbol, err := stringField(req, "symbol")
	if err != nil {
		return nil, err
	}
	quantity, err := intField(req, "quantity")
	if err != nil {
		return nil, err
	}

	tx, err := order(ctx, username, symbol, quantity)
	if err != nil {
		if domain.IsRejection(err) {
			s.logger.Debug().Err(err).Str("user", username).Str("symbol", symbol).Msg("order rejected")
			return newStruct(map[string]any{
				"ok":     false,
				"reason": err.Error(),
			})
		}
		s.logger.Error().Err(err).Str("user", username).Msg("order failed")
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"ok":          true,
		"reason":      "",
		"transaction": transactionToMap(tx),
	})
}

// GetPortfolio handles the GetPortfolio RPC.
// Request: {username: string}
func (s *Server) GetPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(req, "username")
	if err != nil {
		return nil, err
	}

	summary, err := s.DashboardService.GetPortfolioSummary(ctx, username)
	if err != nil {
		return nil, mapError(err)
	}

	holdings := make([]any, 0, len(summary.Holdings))
	for _, h := range summary.Holdings {
		holdings = append(holdings, map[string]any{
			"symbol":   h.Symbol,
			"name":     h.Name,
			"quantity": h.Quantity,
			"price":    h.Price.StringFixed(2),
			"value":    h.Value.StringFixed(2),
			"listed":   h.Listed,
		})
	}

	transactions := make([]any, 0, len(summary.Transactions))
	for _, line := range summary.Transactions {
		transactions = append(transactions, line)
	}

	return newStruct(map[string]any{
		"username":     summary.Username,
		"cash":         summary.Cash.String(),
		"total_value":  summary.TotalValue.StringFixed(2),
		"holdings":     holdings,
		"transactions": transactions,
	})
}

// GetMarket handles the GetMarket RPC. The request carries no fields.
func (s *Server) GetMarket(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	quotes, err := s.DashboardService.GetMarketSnapshot(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	stocks := make([]any, 0, len(quotes))
	for _, q := range quotes {
		stocks = append(stocks, map[string]any{
			"symbol": q.Symbol,
			"name":   q.Name,
			"price":  q.Price.StringFixed(2),
			"change": q.PercentChange.StringFixed(2),
		})
	}

	return newStruct(map[string]any{"stocks": stocks})
}

// transactionToMap converts a domain Transaction to its wire form
func transactionToMap(tx *domain.Transaction) map[string]any {
	return map[string]any{
		"id":        tx.ID.String(),
		"kind":      string(tx.Kind),
		"symbol":    tx.Symbol,
		"quantity":  tx.Quantity,
		"price":     tx.Price.StringFixed(2),
		"timestamp": tx.Timestamp.Format(domain.TimestampLayout),
		"line":      tx.String(),
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return out, nil
}

// stringField extracts a required string field from req
func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "missing field %q", name)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "field %q must be a string", name)
	}
	return s.StringValue, nil
}

// intField extracts a required whole-number field from req
func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing field %q", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "field %q must be a number", name)
	}
	f := n.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "field %q must be a whole number", name)
	}
	return int64(f), nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, domain.ErrUnknownUser), errors.Is(err, domain.ErrUnknownSymbol):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case domain.IsRejection(err),
		errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidAmount):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
