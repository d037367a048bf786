package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "risk-engine",
	Short: "Options trading risk management and execution engine",
	Long: `An options trading risk and execution engine.

It provides:
  - Multi-model position sizing with a conservative ensemble
  - Pre-trade order validation (symbols, prices, funds, market hours)
  - Order routing with broker fallback and async fill monitoring
  - Historical-simulation VaR, stress tests, and Greeks exposure
  - Continuous limit monitoring with tiered alerts`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine: config falls back to real env vars.
		_ = godotenv.Load()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
