package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"rebalancer/internal/config"
	"rebalancer/internal/engine"
	"rebalancer/internal/journal"
	"rebalancer/internal/logging"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest from a config file",
	Long: `Run loads the price data and strategy named in the config, backtests it and
prints the performance report.

Example:
  backtester run -c backtest.yaml --out results/ --name baseline`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	runOutDir   string
	runJSON     bool
	runName     string
	runProgress bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "", "directory for daily_records.csv, trades.csv and report.json")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON instead of the text report")
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "run name stored in the journal (default: strategy name)")
	runCmd.Flags().BoolVar(&runProgress, "progress", true, "show a progress bar on stderr")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	bt, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}
	points, err := loadPoints(ctx, cfg, bt)
	if err != nil {
		return err
	}
	tl := engine.NewTimeline(points)
	logger.Info("price data loaded", "source", cfg.Data.Source, "rows", len(points), "dates", tl.Len())

	selector, err := newSelector(cfg, tl, 0)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	opts := []engine.Option{engine.WithLogger(logger), engine.WithTimeline(tl)}
	if runProgress && !runJSON {
		opts = append(opts, engine.WithProgress(os.Stderr))
	}
	eng, err := engine.NewEngine(bt, selector, opts...)
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runJSON {
		if err := engine.WriteResultJSON(out, res); err != nil {
			return err
		}
	} else {
		engine.PrintReport(out, res)
	}

	if runOutDir != "" {
		if err := engine.WriteFiles(runOutDir, res); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		logger.Info("results written", "dir", runOutDir)
	}

	name := runName
	if name == "" {
		name = cfg.Strategy.Name
	}
	return journalRun(ctx, logger, cfg.Journal.Path, name, res)
}

// journalRun stores res when a journal path is configured.
func journalRun(ctx context.Context, logger *slog.Logger, path, name string, res *engine.Result) error {
	if path == "" {
		return nil
	}
	j, err := journal.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	id, err := j.SaveRun(ctx, name, res)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	logger.Info("run journaled", "run_id", id, "name", name, "journal", path)
	return nil
}
