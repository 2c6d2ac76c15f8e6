package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"rebalancer/internal/engine"
	"rebalancer/types"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

var ErrRunNotFound = errors.New("run not found in journal")

// Journal stores finished backtest runs in a SQLite file.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Run is the stored summary of one backtest.
type Run struct {
	ID          string                   `json:"run_id"`
	Name        string                   `json:"name"`
	CreatedAt   time.Time                `json:"created_at"`
	Config      engine.BacktestConfig    `json:"config"`
	Report      engine.PerformanceReport `json:"report"`
	Diagnostics engine.Diagnostics       `json:"diagnostics"`
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// SaveRun stores res under a new run id in a single transaction.
func (j *Journal) SaveRun(ctx context.Context, name string, res *engine.Result) (string, error) {
	now := j.now()
	id, err := newRunID(now)
	if err != nil {
		return "", fmt.Errorf("new run id: %w", err)
	}
	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	report, err := json.Marshal(res.Report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	diag, err := json.Marshal(res.Diagnostics)
	if err != nil {
		return "", fmt.Errorf("encode diagnostics: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, name, created_at, start_date, end_date, final_value, total_return, sharpe, max_drawdown, config, report, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, now.UTC().Format(time.RFC3339Nano),
		formatDate(res.Report.StartDate), formatDate(res.Report.EndDate),
		res.Report.FinalValue.String(), res.Report.TotalReturn, res.Report.Sharpe, res.Report.MaxDrawdown,
		string(cfg), string(report), string(diag),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(run_id, seq, date, symbol, action, price, reference_price, shares, gross_amount, commission, slippage_cost, net_amount, reason, partial)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer tradeStmt.Close()
	for i, t := range res.Trades {
		_, err := tradeStmt.ExecContext(ctx,
			id, i, formatDate(t.Date), t.Symbol, string(t.Side),
			t.Price.String(), t.ReferencePrice.String(), t.Shares.String(),
			t.GrossAmount.String(), t.Commission.String(), t.SlippageCost.String(), t.NetAmount.String(),
			string(t.Reason), t.Partial,
		)
		if err != nil {
			return "", fmt.Errorf("insert trade %d: %w", i, err)
		}
	}

	recordStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_records
		(run_id, date, portfolio_value, cash, positions_value, daily_return, cumulative_return, holdings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer recordStmt.Close()
	for _, r := range res.DailyRecords {
		_, err := recordStmt.ExecContext(ctx,
			id, formatDate(r.Date), r.PortfolioValue.String(), r.Cash.String(), r.PositionsValue.String(),
			r.DailyReturn, r.CumulativeReturn, r.Holdings,
		)
		if err != nil {
			return "", fmt.Errorf("insert daily record %s: %w", formatDate(r.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

const selectRun = `SELECT run_id, name, created_at, config, report, diagnostics FROM runs`

func (j *Journal) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s %w", runID, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns every stored run, oldest first.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, selectRun+` ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (j *Journal) ListTrades(ctx context.Context, runID string) ([]types.Trade, error) {
	if err := j.exists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, symbol, action, price, reference_price, shares, gross_amount, commission, slippage_cost, net_amount, reason, partial
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []types.Trade
	for rows.Next() {
		var t types.Trade
		var date, side, reason string
		var price, ref, shares, gross, commission, slip, net string
		if err := rows.Scan(&date, &t.Symbol, &side, &price, &ref, &shares, &gross, &commission, &slip, &net, &reason, &t.Partial); err != nil {
			return nil, err
		}
		t.Side = types.Side(side)
		t.Reason = types.TradeReason(reason)
		if t.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if err := parseDecimals(
			field{"price", price, &t.Price},
			field{"reference_price", ref, &t.ReferencePrice},
			field{"shares", shares, &t.Shares},
			field{"gross_amount", gross, &t.GrossAmount},
			field{"commission", commission, &t.Commission},
			field{"slippage_cost", slip, &t.SlippageCost},
			field{"net_amount", net, &t.NetAmount},
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (j *Journal) ListDailyRecords(ctx context.Context, runID string) ([]types.DailyRecord, error) {
	if err := j.exists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT date, portfolio_value, cash, positions_value, daily_return, cumulative_return, holdings
		FROM daily_records WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.DailyRecord
	for rows.Next() {
		var r types.DailyRecord
		var date, value, cash, positions string
		if err := rows.Scan(&date, &value, &cash, &positions, &r.DailyReturn, &r.CumulativeReturn, &r.Holdings); err != nil {
			return nil, err
		}
		if r.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if err := parseDecimals(
			field{"portfolio_value", value, &r.PortfolioValue},
			field{"cash", cash, &r.Cash},
			field{"positions_value", positions, &r.PositionsValue},
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) exists(ctx context.Context, runID string) error {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s %w", runID, ErrRunNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var created, cfg, report, diagnostics string
	if err := s.Scan(&run.ID, &run.Name, &created, &cfg, &report, &diagnostics); err != nil {
		return Run{}, err
	}
	var err error
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Run{}, fmt.Errorf("run %s created_at: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(cfg), &run.Config); err != nil {
		return Run{}, fmt.Errorf("run %s config: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(report), &run.Report); err != nil {
		return Run{}, fmt.Errorf("run %s report: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(diagnostics), &run.Diagnostics); err != nil {
		return Run{}, fmt.Errorf("run %s diagnostics: %w", run.ID, err)
	}
	return run, nil
}

type field struct {
	name string
	raw  string
	dst  *decimal.Decimal
}

func parseDecimals(fields ...field) error {
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("%s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
