package main

import (
	"fmt"
	"os"
	"os/signal"
	"rebalancer/internal/config"
	"rebalancer/internal/engine"
	"rebalancer/internal/logging"
	"rebalancer/types"
	"strconv"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Backtest a grid of parameter variations in parallel",
	Long: `Sweep runs the config once per combination of the given top-n values and
rebalance frequencies over the same price data and prints one summary row
per run. A failing run is reported in its row and does not stop the others.

Example:
  backtester sweep -c backtest.yaml --top-n 5,10,20 --freq weekly,monthly -p 4`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	sweepTopN     []int
	sweepFreqs    []string
	sweepParallel int
	sweepJournal  bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().IntSliceVar(&sweepTopN, "top-n", nil, "factorrank top-n values to sweep")
	sweepCmd.Flags().StringSliceVar(&sweepFreqs, "freq", nil, "rebalance frequencies to sweep (daily, weekly, monthly)")
	sweepCmd.Flags().IntVarP(&sweepParallel, "parallel", "p", 4, "maximum runs in flight (0 = unbounded)")
	sweepCmd.Flags().BoolVar(&sweepJournal, "journal", false, "store every successful run in the configured journal")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if len(sweepTopN) > 0 && cfg.Strategy.Name != config.StrategyFactorRank {
		return fmt.Errorf("--top-n only applies to strategy %s", config.StrategyFactorRank)
	}
	base, err := cfg.BacktestConfig()
	if err != nil {
		return err
	}
	points, err := loadPoints(ctx, cfg, base)
	if err != nil {
		return err
	}
	history := engine.NewTimeline(points)

	freqs := []types.Frequency{base.RebalanceFreq}
	if len(sweepFreqs) > 0 {
		freqs = freqs[:0]
		for _, raw := range sweepFreqs {
			f, ok := types.LookupFrequency(raw)
			if !ok {
				return fmt.Errorf("unknown frequency %q", raw)
			}
			freqs = append(freqs, f)
		}
	}
	topNs := sweepTopN
	if len(topNs) == 0 {
		topNs = []int{0}
	}

	var runs []engine.SweepRun
	for _, n := range topNs {
		for _, f := range freqs {
			selector, err := newSelector(cfg, history, n)
			if err != nil {
				return fmt.Errorf("strategy: %w", err)
			}
			bt := base
			bt.RebalanceFreq = f
			runs = append(runs, engine.SweepRun{Name: sweepName(cfg.Strategy.Name, n, f), Config: bt, Selector: selector})
		}
	}
	logger.Info("sweep started", "runs", len(runs), "parallel", sweepParallel)

	results := engine.Sweep(ctx, points, runs, sweepParallel, engine.WithLogger(logger.With("component", "sweep")))

	headers := []string{"Run", "Total Return", "Annualized", "Max Drawdown", "Sharpe", "Sortino", "Turnover", "Trades", "Error"}
	rows := make([][]string, 0, len(results))
	failed := map[int]bool{}
	for i, r := range results {
		if r.Err != nil {
			failed[i] = true
			rows = append(rows, []string{r.Name, "", "", "", "", "", "", "", r.Err.Error()})
			logger.Warn("sweep run failed", "run", r.Name, "error", r.Err)
			continue
		}
		rep := r.Result.Report
		rows = append(rows, []string{
			r.Name,
			pct(rep.TotalReturn),
			pct(rep.AnnualizedReturn),
			pct(rep.MaxDrawdown),
			strconv.FormatFloat(rep.Sharpe, 'f', 2, 64),
			strconv.FormatFloat(rep.Sortino, 'f', 2, 64),
			strconv.FormatFloat(rep.Turnover, 'f', 2, 64),
			strconv.Itoa(rep.TradeCount),
			"",
		})
		if sweepJournal {
			if err := journalRun(ctx, logger, cfg.Journal.Path, r.Name, r.Result); err != nil {
				return err
			}
		}
	}
	printTable(cmd.OutOrStdout(), headers, rows, failed)

	if len(failed) == len(results) {
		return fmt.Errorf("all %d sweep runs failed", len(results))
	}
	return nil
}

func sweepName(strategy string, topN int, freq types.Frequency) string {
	if topN > 0 {
		return fmt.Sprintf("%s/top%d/%s", strategy, topN, freq)
	}
	return fmt.Sprintf("%s/%s", strategy, freq)
}
