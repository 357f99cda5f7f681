package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simaogato/papertrade-backend/internal/adapter/cli"
)

// menuCmd runs the interactive menu for the active user
var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive trading menu for the active user",
	Long: `Open the numbered trading menu for the active user (users.active or --user).

Example usage:
  papertrade menu
  papertrade menu --user alice --data ./alice.txt`,
	RunE: runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.trading.HasUser(a.cfg.Users.Active) {
		a.logger.Warn().Str("user", a.cfg.Users.Active).Msg("active user is not registered; orders will be rejected")
	}

	if a.cfg.Market.TickInterval > 0 {
		go a.market.Run(ctx, a.cfg.Market.TickInterval)
	}

	menu := cli.NewMenu(os.Stdin, os.Stdout, a.trading, a.dashboard, a.market,
		a.cfg.Users.Active, a.cfg.Users.Currency, a.logger)
	return menu.Run(ctx)
}
