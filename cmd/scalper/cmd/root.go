package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scalper",
	Short: "An automated short-horizon FX trading engine",
	Long: `Scalper is an automated trading engine for short-horizon FX strategies.

Every tick it computes technical features over recent candles, classifies
the market regime, consults the account-level risk governor and walks a
layered pre-trade checklist before any order is placed. Operators steer
the running engine over Telegram; every decision and order is journaled.

Complete documentation is available at https://github.com/rustyeddy/scalper`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
