package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"rebalancer/types"
	"sync"
	"time"
)

type runState int

const (
	stateNotStarted runState = iota
	stateRunning
	stateCompleted
)

// Engine runs rebalancing backtests of one Selector over loaded price data.
// Every Run starts from a fresh ledger; an Engine may be reused but not run
// concurrently.
type Engine struct {
	cfg      BacktestConfig
	selector Selector
	timeline *Timeline
	logger   *slog.Logger
	progress io.Writer

	mu    sync.Mutex
	state runState
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress renders a progress bar of the date loop to w.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) {
		e.progress = w
	}
}

// WithTimeline attaches already indexed price data.
func WithTimeline(tl *Timeline) Option {
	return func(e *Engine) {
		e.timeline = tl
	}
}

func NewEngine(cfg BacktestConfig, selector Selector, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if selector == nil {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalidConfig)
	}
	e := &Engine{
		cfg:      cfg,
		selector: selector,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Config() BacktestConfig {
	return e.cfg
}

// Timeline returns the attached price data, or nil before LoadData.
func (e *Engine) Timeline() *Timeline {
	return e.timeline
}

// LoadData reads every bar from src and indexes it.
func (e *Engine) LoadData(ctx context.Context, src Source) error {
	points, err := src.Load(ctx)
	if err != nil {
		return stageErr(StageLoad, time.Time{}, err)
	}
	e.Attach(points)
	e.logger.Info("price data loaded", "rows", len(points), "dates", e.timeline.Len())
	return nil
}

// Attach indexes points as the engine's price data.
func (e *Engine) Attach(points []types.PricePoint) {
	e.timeline = NewTimeline(points)
}

// Run backtests over the configured date range and rebalance frequency.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	return e.RunRange(ctx, e.cfg.StartDate, e.cfg.EndDate, e.cfg.RebalanceFreq)
}

// RunRange backtests over [start, end] (zero bounds are open) rebalancing at
// freq. The run can be aborted between dates by cancelling ctx.
func (e *Engine) RunRange(ctx context.Context, start, end time.Time, freq types.Frequency) (*Result, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.finish()

	if e.timeline == nil || e.timeline.Len() == 0 {
		return nil, stageErr(StageLoad, time.Time{}, ErrDataNotLoaded)
	}

	dates := e.timeline.DatesBetween(start, end)
	if len(dates) == 0 {
		return nil, stageErr(StageSchedule, time.Time{}, ErrNoTradableDate)
	}
	rebalance := RebalanceDates(dates, freq)

	bt := newBacktester(e.cfg, e.selector, e.timeline, e.logger, rebalance)
	e.logger.Info("backtest started",
		"start", dates[0].Format(time.DateOnly),
		"end", dates[len(dates)-1].Format(time.DateOnly),
		"dates", len(dates),
		"rebalances", len(rebalance),
		"freq", string(freq),
	)
	if err := bt.run(ctx, dates, e.progress); err != nil {
		return nil, err
	}
	if len(bt.records) == 0 {
		return nil, stageErr(StageSchedule, time.Time{}, fmt.Errorf("%w: all %d dates unusable", ErrNoTradableDate, len(dates)))
	}

	report := NewAnalyzer(e.cfg.InitialCapital, e.cfg.RiskFreeRate).Analyze(bt.records, bt.trades)
	e.logger.Info("backtest completed",
		"total_return", report.TotalReturn,
		"max_drawdown", report.MaxDrawdown,
		"trades", report.TradeCount,
		"skipped_symbol_days", bt.diag.SkippedSymbolDays,
		"partial_fills", bt.diag.PartialFillCount,
		"unusable_dates", len(bt.diag.UnusableDates),
	)
	return &Result{
		Config:       e.cfg,
		Report:       report,
		DailyRecords: bt.records,
		Trades:       bt.trades,
		Diagnostics:  bt.diag,
		Final:        bt.portfolio.snapshot(dates[len(dates)-1]),
	}, nil
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateRunning {
		return ErrRunInProgress
	}
	e.state = stateRunning
	return nil
}

func (e *Engine) finish() {
	e.mu.Lock()
	e.state = stateCompleted
	e.mu.Unlock()
}

// Result is everything a run produced: the metrics, the full daily and trade
// logs, the run diagnostics and the closing portfolio.
type Result struct {
	Config       BacktestConfig      `json:"config"`
	Report       PerformanceReport   `json:"report"`
	DailyRecords []types.DailyRecord `json:"daily_records"`
	Trades       []types.Trade       `json:"trades"`
	Diagnostics  Diagnostics         `json:"diagnostics"`
	Final        types.PortfolioView `json:"final_portfolio"`
}
