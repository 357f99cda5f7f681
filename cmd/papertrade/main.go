package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath    string
	dataFile      string
	activeUser    string
	storageDriver string
	storageDSN    string
)

// rootCmd is the base command for the papertrade CLI. Without a subcommand it opens the menu.
var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "Paper trading platform over a simulated stock market",
	Long: `papertrade keeps per-user cash and share holdings, executes buy and sell
orders at simulated market prices, and saves every user to a snapshot after
each change so the state survives restarts.`,
	SilenceUsage: true,
	RunE:         runMenu,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flags.StringVar(&dataFile, "data", "", "Snapshot file (overrides storage.path)")
	flags.StringVar(&activeUser, "user", "", "Active user for the menu (overrides users.active)")
	flags.StringVar(&storageDriver, "storage", "", "Storage driver: file or postgres")
	flags.StringVar(&storageDSN, "dsn", "", "Postgres connection string for the postgres driver")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
