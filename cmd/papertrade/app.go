package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simaogato/papertrade-backend/internal/adapter/market"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/snapshot"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/metrics"
	"github.com/simaogato/papertrade-backend/internal/usecase/dashboard"
	"github.com/simaogato/papertrade-backend/internal/usecase/seeder"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

// app holds the wired services shared by every subcommand
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	market    *market.Market
	metrics   *metrics.Metrics
	trading   *trading.TradingService
	dashboard *dashboard.DashboardService

	closers []func() error
}

// bootstrap loads configuration and wires storage, market and services.
// Logic:
//  1. Load config and apply command-line overrides
//  2. Open the snapshot store and restore the directory (failures start empty)
//  3. Seed default users that the snapshot does not contain, when seed is set
func bootstrap(ctx context.Context, seed bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataFile != "" {
		cfg.Storage.Path = dataFile
	}
	if activeUser != "" {
		cfg.Users.Active = activeUser
	}
	if storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}
	if storageDSN != "" {
		cfg.Storage.PostgresDSN = storageDSN
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	var marketOpts []market.Option
	marketOpts = append(marketOpts, market.WithLogger(logger.With().Str("component", "market").Logger()))
	if cfg.Market.Seed != 0 {
		marketOpts = append(marketOpts, market.WithRand(rand.New(rand.NewPCG(cfg.Market.Seed, cfg.Market.Seed))))
	}
	a.market, err = market.NewMarket(market.DefaultListings(), marketOpts...)
	if err != nil {
		return nil, err
	}

	repo, err := a.openRepository(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.trading = trading.NewTradingService(a.market, repo,
		trading.WithLogger(logger.With().Str("component", "trading").Logger()),
		trading.WithMetrics(a.metrics),
	)
	if err := a.trading.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("snapshot not restored")
	} else {
		logger.Info().Int("users", len(a.trading.Usernames())).Msg("snapshot restored")
	}

	if seed {
		if err := a.seedDefaults(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	a.dashboard = dashboard.NewDashboardService(a.trading, a.market)
	return a, nil
}

// seedDefaults registers the configured default users that are missing. Registering saves.
func (a *app) seedDefaults(ctx context.Context) error {
	defaults := make([]seeder.DefaultUser, 0, len(a.cfg.Users.Defaults))
	for _, u := range a.cfg.Users.Defaults {
		balance, err := u.Balance()
		if err != nil {
			return err
		}
		defaults = append(defaults, seeder.DefaultUser{Username: u.Username, InitialBalance: balance})
	}
	created, err := seeder.NewUserSeeder(a.trading).Seed(ctx, defaults)
	if err != nil {
		return err
	}
	if len(created) > 0 {
		a.logger.Info().Strs("users", created).Msg("default users seeded")
	}
	return nil
}

// openRepository returns the directory repository for the configured driver
func (a *app) openRepository(ctx context.Context) (domain.DirectoryRepository, error) {
	logger := a.logger.With().Str("component", "storage").Logger()

	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(a.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info().Msg("using postgres snapshot store")
		return postgres.NewSnapshotRepository(db, logger), nil
	default:
		logger.Info().Str("path", a.cfg.Storage.Path).Msg("using snapshot file")
		return snapshot.NewFileRepository(a.cfg.Storage.Path, logger), nil
	}
}

func (a *app) close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close resource")
		}
	}
	a.closers = nil
}

// newLogger builds the process logger from the log settings
func newLogger(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}
