package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "copytrader",
	Short: "Mirror source account positions onto a destination options account",
	Long: `Copytrader watches an upstream trading account through a terminal bridge
and mirrors every position change onto a destination brokerage account as
same-day option orders.

It provides:
  - Continuous position polling and ticket-set diffing
  - Trading-hours and pattern-day-trade gating
  - Long/short to call/put order translation with limit pricing
  - A durable order lifecycle store that survives restarts
  - A SQLite or CSV journal of every mirroring decision`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
