package engine

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"rebalancer/types"
	"strconv"
	"time"
)

// WriteFiles writes daily_records.csv, trades.csv and report.json into dir.
func WriteFiles(dir string, r *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"daily_records.csv", func(w io.Writer) error { return WriteDailyRecordsCSV(w, r.DailyRecords) }},
		{"trades.csv", func(w io.Writer) error { return WriteTradesCSV(w, r.Trades) }},
		{"report.json", func(w io.Writer) error { return WriteResultJSON(w, r) }},
	}
	for _, out := range outputs {
		if err := writeFile(filepath.Join(dir, out.name), out.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return write(f)
}

// WriteDailyRecordsCSV writes records to any io.Writer as CSV.
func WriteDailyRecordsCSV(w io.Writer, records []types.DailyRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"date",
		"portfolio_value",
		"cash",
		"positions_value",
		"daily_return",
		"cumulative_return",
		"holdings",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		record := []string{
			r.Date.Format(time.DateOnly),
			r.PortfolioValue.String(),
			r.Cash.String(),
			r.PositionsValue.String(),
			strconv.FormatFloat(r.DailyReturn, 'f', -1, 64),
			strconv.FormatFloat(r.CumulativeReturn, 'f', -1, 64),
			strconv.Itoa(r.Holdings),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteTradesCSV writes trades to any io.Writer as CSV.
// You can pass os.Stdout for debugging, or a file.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"date",
		"symbol",
		"action",
		"price",
		"reference_price",
		"shares",
		"gross_amount",
		"commission",
		"slippage_cost",
		"net_amount",
		"reason",
		"partial",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		record := []string{
			t.Date.Format(time.DateOnly),
			t.Symbol,
			string(t.Side),
			t.Price.String(),
			t.ReferencePrice.String(),
			t.Shares.String(),
			t.GrossAmount.String(),
			t.Commission.String(),
			t.SlippageCost.String(),
			t.NetAmount.String(),
			string(t.Reason),
			strconv.FormatBool(t.Partial),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteResultJSON writes the full result as indented JSON.
func WriteResultJSON(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
