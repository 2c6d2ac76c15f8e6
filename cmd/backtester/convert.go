package main

import (
	"fmt"
	"os"
	"rebalancer/internal/config"
	"rebalancer/internal/logging"
	"rebalancer/internal/repository"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Export the configured price data to a Parquet file",
	Long: `Convert loads the bars of the config's data source (CSV or Postgres) and
writes them as a Parquet file that a later config can use with source parquet.

Example:
  backtester convert -c backtest.yaml -o data/bars.parquet`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

var convertOut string

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output Parquet path (required)")
	convertCmd.MarkFlagRequired("out")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	bt, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}
	points, err := loadPoints(cmd.Context(), cfg, bt)
	if err != nil {
		return err
	}
	if err := repository.WriteParquet(convertOut, points); err != nil {
		return err
	}
	logger.Info("parquet written", "path", convertOut, "rows", len(points))
	return nil
}
