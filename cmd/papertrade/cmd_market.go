package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var marketTicks int

// marketCmd prints the simulated market
var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Print current market quotes",
	Long: `Print every listing with its price and percent change.
With --ticks the prices take that many random-walk steps first.

Example usage:
  papertrade market
  papertrade market --ticks 5`,
	RunE: runMarket,
}

func init() {
	rootCmd.AddCommand(marketCmd)
	marketCmd.Flags().IntVar(&marketTicks, "ticks", 0, "Number of price updates to apply before printing")
}

func runMarket(cmd *cobra.Command, args []string) error {
	if marketTicks < 0 {
		return fmt.Errorf("--ticks cannot be negative")
	}

	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	for i := 0; i < marketTicks; i++ {
		a.market.UpdatePrices()
	}

	quotes, err := a.dashboard.GetMarketSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tPRICE\tCHANGE")
	for _, q := range quotes {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s%%\n", q.Symbol, q.Name, a.cfg.Users.Currency, q.Price.StringFixed(2), q.PercentChange.StringFixed(2))
	}
	return w.Flush()
}
