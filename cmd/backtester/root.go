package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Rebalancing equity backtester",
	Long: `backtester simulates a periodically rebalanced long-only equity portfolio
over daily bars and reports its performance.

Examples:
  backtester run -c backtest.yaml
  backtester sweep -c backtest.yaml --top-n 5,10,20
  backtester show --journal runs.sqlite
  backtester convert -i bars.csv -o bars.parquet`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "backtest.yaml", "path to the YAML run config")
}
