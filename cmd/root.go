package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "dexarb",
	Short: "Two-hop DEX arbitrage bot",
	Long: `Two-hop DEX arbitrage bot that consumes decoded swaps from a mempool
feed, enumerates round-trip paths back to the base asset across known
pools, values each candidate against live router quotes, and submits
profitable executions in paper or live mode.

Valuation replays both legs through eth_call, prices gas from the
current base fee, and applies risk gates before any execution attempt.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
