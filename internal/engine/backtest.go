package engine

import (
	"context"
	"io"
	"log/slog"
	"rebalancer/types"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// backtester holds the state of a single run. It is created by RunRange and
// discarded afterwards.
type backtester struct {
	cfg       BacktestConfig
	selector  Selector
	timeline  *Timeline
	logger    *slog.Logger
	executor  *executor
	portfolio *portfolio
	rebalance map[time.Time]bool

	records []types.DailyRecord
	trades  []types.Trade
	diag    Diagnostics
}

func newBacktester(cfg BacktestConfig, selector Selector, tl *Timeline, logger *slog.Logger, rebalanceDates []time.Time) *backtester {
	rebalance := make(map[time.Time]bool, len(rebalanceDates))
	for _, d := range rebalanceDates {
		rebalance[d] = true
	}
	return &backtester{
		cfg:       cfg,
		selector:  selector,
		timeline:  tl,
		logger:    logger,
		executor:  newExecutor(cfg),
		portfolio: newPortfolio(cfg.InitialCapital),
		rebalance: rebalance,
	}
}

func (b *backtester) run(ctx context.Context, dates []time.Time, progress io.Writer) error {
	bar := initProgressBar(len(dates), progress)
	defer bar.Finish()

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return stageErr(StageExecute, date, err)
		}
		if err := b.step(ctx, date); err != nil {
			return err
		}
		bar.Add(1)
	}
	return nil
}

// step processes one date: value the ledger, apply stop-losses, rebalance on
// rebalance dates and append the day's record.
func (b *backtester) step(ctx context.Context, date time.Time) error {
	slice := b.timeline.Slice(date)
	if !slice.anyTradable() {
		b.diag.UnusableDates = append(b.diag.UnusableDates, date)
		b.logger.Warn("date has no tradable prices, skipped", "date", date.Format(time.DateOnly))
		return nil
	}

	_, _, missing := b.portfolio.markToMarket(slice, b.cfg.MissingPricePolicy)
	for _, sym := range missing {
		b.diag.addMissing(MissingPriceWarning{
			Date:   date,
			Symbol: sym,
			Stage:  missingStageValue,
			Reason: "no price for held symbol, policy " + string(b.cfg.MissingPricePolicy),
		})
		b.logger.Warn("missing price", "date", date.Format(time.DateOnly), "symbol", sym, "policy", b.cfg.MissingPricePolicy)
	}

	stops, err := b.executor.stopLoss(date, b.cfg.StopLoss, slice, b.portfolio)
	b.trades = append(b.trades, stops...)
	if err != nil {
		return stageErr(StageExecute, date, err)
	}
	for _, tr := range stops {
		b.logger.Info("stop loss", "date", date.Format(time.DateOnly), "symbol", tr.Symbol, "price", tr.ReferencePrice.String())
	}

	if b.rebalance[date] {
		if err := b.rebalanceOn(ctx, date, slice); err != nil {
			return err
		}
	}

	b.record(date, slice)
	return nil
}

func (b *backtester) rebalanceOn(ctx context.Context, date time.Time, slice Slice) error {
	raw, err := b.selector.Select(ctx, date, slice)
	if err != nil {
		return stageErr(StageExecute, date, err)
	}
	if r, ok := b.selector.(SkipReporter); ok {
		if counts := b.diag.addSkips(r.Skips()); len(counts) > 0 {
			b.logger.Debug("selection skips", "date", date.Format(time.DateOnly), "reasons", counts)
		}
	}
	target := ApplyRiskCaps(raw, groupsFor(raw, slice, b.timeline), b.cfg.MaxSinglePosition, b.cfg.MaxGroupPosition)

	partialsBefore := b.diag.PartialFillCount
	trades, err := b.executor.execute(date, target, slice, b.portfolio, &b.diag)
	b.trades = append(b.trades, trades...)
	if err != nil {
		return stageErr(StageExecute, date, err)
	}
	b.logger.Debug("rebalanced",
		"date", date.Format(time.DateOnly),
		"targets", len(target),
		"trades", len(trades),
		"partial_fills", b.diag.PartialFillCount-partialsBefore,
		"cash", b.portfolio.Cash().String(),
	)
	return nil
}

func (b *backtester) record(date time.Time, slice Slice) {
	value, positionsValue, _ := b.portfolio.markToMarket(slice, b.cfg.MissingPricePolicy)

	var daily float64
	if n := len(b.records); n > 0 {
		prev := b.records[n-1].PortfolioValue
		if prev.IsPositive() {
			daily = value.Div(prev).Sub(decimal.NewFromInt(1)).InexactFloat64()
		}
	}
	cumulative := value.Div(b.cfg.InitialCapital).Sub(decimal.NewFromInt(1)).InexactFloat64()

	b.records = append(b.records, types.DailyRecord{
		Date:             date,
		PortfolioValue:   value,
		Cash:             b.portfolio.Cash(),
		PositionsValue:   positionsValue,
		DailyReturn:      daily,
		CumulativeReturn: cumulative,
		Holdings:         len(b.portfolio.held()),
	})
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
