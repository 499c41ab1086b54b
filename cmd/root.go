package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "settlementd",
	Short: "Prediction market resolution and settlement engine",
	Long: `Resolution and settlement engine for binary prediction markets.

Aggregates outcome reports from verified data sources into a finalized
result, distributes staked value to winners pari-mutuel, runs a dispute
window over finalized outcomes, and hosts a constant-product AMM for
secondary trading of claim balances.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
