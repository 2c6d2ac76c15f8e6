package main

import (
	"fmt"
	"os"
	"rebalancer/internal/engine"
	"rebalancer/internal/journal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "List journaled runs or show one of them",
	Long: `Show lists every run stored in the journal. Given a run id it prints that
run's report, and with --out also re-exports its daily records and trades.

Examples:
  backtester show --journal runs.sqlite
  backtester show --journal runs.sqlite 01HV6Z3K9J8X2R4T5Y7W0M1N2P --out results/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var (
	showJournal string
	showOutDir  string
	showJSON    bool
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showJournal, "journal", "j", os.Getenv("BACKTEST_JOURNAL_PATH"), "path to the SQLite run journal")
	showCmd.Flags().StringVarP(&showOutDir, "out", "o", "", "directory to export the run's CSV and JSON files to")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the run as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	if showJournal == "" {
		return fmt.Errorf("--journal is required")
	}
	j, err := journal.Open(showJournal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := j.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs journaled.")
			return nil
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.ID,
				r.Name,
				r.CreatedAt.Local().Format(time.DateTime),
				pct(r.Report.TotalReturn),
				pct(r.Report.MaxDrawdown),
				strconv.FormatFloat(r.Report.Sharpe, 'f', 2, 64),
				strconv.Itoa(r.Report.TradeCount),
			})
		}
		printTable(out, []string{"Run ID", "Name", "Created", "Total Return", "Max Drawdown", "Sharpe", "Trades"}, rows, nil)
		return nil
	}

	runID := args[0]
	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	trades, err := j.ListTrades(ctx, runID)
	if err != nil {
		return err
	}
	records, err := j.ListDailyRecords(ctx, runID)
	if err != nil {
		return err
	}
	res := &engine.Result{
		Config:       run.Config,
		Report:       run.Report,
		DailyRecords: records,
		Trades:       trades,
		Diagnostics:  run.Diagnostics,
	}

	if showJSON {
		if err := engine.WriteResultJSON(out, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Run %s (%s), journaled %s\n", run.ID, run.Name, run.CreatedAt.Local().Format(time.DateTime))
		engine.PrintReport(out, res)
	}
	if showOutDir != "" {
		return engine.WriteFiles(showOutDir, res)
	}
	return nil
}
