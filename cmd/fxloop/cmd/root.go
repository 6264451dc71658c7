package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fxloop",
	Short: "Event-driven FX trading loop",
	Long: `fxloop runs a single-threaded trading loop over a live or replayed
price feed.

Ticks update a price book and feed a strategy; signals become positions in a
portfolio kept in the account's home currency; orders go to OANDA or to a
paper executor. Realized trades, orders and balances are journaled.

OANDA credentials are read from OANDA_TOKEN and OANDA_ACCOUNT_ID, which may
be set in a .env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is normal
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
