package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"

	grpcadapter "github.com/simaogato/papertrade-backend/internal/adapter/grpc"
)

// serveCmd runs the gRPC API and the metrics endpoint
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the trading gRPC API",
	Long: `Serve papertrade.v1.TradingService over gRPC and Prometheus metrics over HTTP.
Calls must carry the configured token in the authorization metadata.

Example usage:
  papertrade serve
  PAPERTRADE_API_TOKEN=secret papertrade serve --config papertrade.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	grpcLogger := a.logger.With().Str("component", "grpc").Logger()
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(grpcLogger),
			grpcadapter.AuthInterceptor(a.cfg.Server.APIToken),
		),
	)
	grpcadapter.RegisterTradingServer(grpcServer, grpcadapter.NewServer(a.trading, a.dashboard, grpcLogger))

	lis, err := net.Listen("tcp", a.cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.GRPCAddr, err)
	}

	serveErr := make(chan error, 2)
	go func() {
		a.logger.Info().Str("addr", a.cfg.Server.GRPCAddr).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	var metricsServer *http.Server
	if a.cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		metricsServer = &http.Server{
			Addr:              a.cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info().Str("addr", a.cfg.Server.MetricsAddr).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	if a.cfg.Market.TickInterval > 0 {
		go a.market.Run(ctx, a.cfg.Market.TickInterval)
	}

	return waitForShutdown(ctx, a, grpcServer, metricsServer, serveErr)
}

// waitForShutdown blocks until a signal or a server failure, then stops both servers gracefully
func waitForShutdown(ctx context.Context, a *app, grpcServer *grpclib.Server, metricsServer *http.Server, serveErr <-chan error) error {
	var err error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down gracefully")
	case err = <-serveErr:
		a.logger.Error().Err(err).Msg("server failed")
	}

	grpcServer.GracefulStop()
	a.logger.Info().Msg("gRPC server stopped")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Warn().Err(shutdownErr).Msg("metrics server shutdown")
		}
	}
	return err
}
