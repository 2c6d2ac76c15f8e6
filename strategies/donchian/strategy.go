package donchian

import (
	"context"
	"errors"
	"rebalancer/internal/engine"
	"rebalancer/types"
	"time"

	"github.com/shopspring/decimal"
)

// Config controls the channel breakout.
type Config struct {
	// Lookback is the number of completed bars forming the channel.
	Lookback int
	// ATRPeriod is the Wilder ATR length used for sizing.
	ATRPeriod int
	// MaxHoldings caps the number of selected symbols; 0 means no cap.
	MaxHoldings int
}

// Selector is a long-only Donchian channel trend follower. A symbol is long
// after its close breaks above the highest high of the preceding Lookback
// bars and stays long until a close breaks below the lowest low of the
// preceding Lookback bars. Long symbols are weighted by inverse ATR%.
//
// The trend state is recomputed from the price history on every call, so a
// Selector holds no per-run state and can be reused across runs.
type Selector struct {
	history engine.HistoryProvider
	cfg     Config
}

func New(history engine.HistoryProvider, cfg Config) (*Selector, error) {
	if history == nil {
		return nil, errors.New("donchian: history provider is required")
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 20
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.MaxHoldings < 0 {
		return nil, errors.New("donchian: max holdings must be >= 0")
	}
	return &Selector{history: history, cfg: cfg}, nil
}

// window is how many bars are read per symbol: enough for several channel
// lengths of state plus the ATR warm-up.
func (s *Selector) window() int {
	return 4*s.cfg.Lookback + s.cfg.ATRPeriod + 1
}

func (s *Selector) Select(ctx context.Context, date time.Time, slice engine.Slice) (map[string]float64, error) {
	var candidates []candidate
	for _, sym := range slice.Symbols() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		closePrice, ok := slice.Price(sym)
		if !ok {
			continue
		}
		bars := s.history.History(sym, date, s.window())
		if len(bars) == 0 || !bars[len(bars)-1].Date.Equal(types.Day(date)) {
			continue
		}

		side, strength := trendSignal(bars, s.cfg.Lookback)
		if side != types.SideBuy {
			continue
		}
		atr := calcATR(bars, s.cfg.ATRPeriod)
		if !atr.IsPositive() {
			continue
		}
		candidates = append(candidates, candidate{
			symbol:   sym,
			strength: strength,
			atrPct:   atr.Div(closePrice).InexactFloat64(),
		})
	}
	return allocate(candidates, s.cfg.MaxHoldings), nil
}

// trendSignal walks bars oldest first and returns the side of the most recent
// channel break (empty when none) and, for a buy, how far the breakout close
// cleared the channel high.
func trendSignal(bars []types.PricePoint, lookback int) (types.Side, float64) {
	var side types.Side
	var strength float64
	for i := lookback; i < len(bars); i++ {
		highestHigh, lowestLow := donchianHighLow(bars[i-lookback : i])
		c := bars[i].Close
		switch {
		case c.GreaterThan(highestHigh):
			side = types.SideBuy
			if highestHigh.IsPositive() {
				strength = c.Div(highestHigh).Sub(decimal.NewFromInt(1)).InexactFloat64()
			}
		case c.LessThan(lowestLow):
			side = types.SideSell
			strength = 0
		}
	}
	return side, strength
}

// Utility: Donchian Channel High/Low
func donchianHighLow(bars []types.PricePoint) (decimal.Decimal, decimal.Decimal) {
	if len(bars) == 0 {
		return decimal.Zero, decimal.Zero
	}

	highest := bars[0].High
	lowest := bars[0].Low

	for _, c := range bars {
		if c.High.GreaterThan(highest) {
			highest = c.High
		}
		if c.Low.LessThan(lowest) {
			lowest = c.Low
		}
	}
	return highest, lowest
}

func calcATR(bars []types.PricePoint, period int) decimal.Decimal {
	if len(bars) < period+1 {
		return decimal.Zero // need enough data (prev bar + period)
	}

	var trueRanges []decimal.Decimal

	for i := 1; i < len(bars); i++ {
		high := bars[i].High
		low := bars[i].Low
		prevClose := bars[i-1].Close

		range1 := high.Sub(low)
		range2 := high.Sub(prevClose).Abs()
		range3 := low.Sub(prevClose).Abs()

		maxTrueRange := decimal.Max(range1, range2, range3)
		trueRanges = append(trueRanges, maxTrueRange)
	}

	atr := decimal.Zero
	for _, tr := range trueRanges[:period] {
		atr = atr.Add(tr)
	}
	atr = atr.Div(decimal.NewFromInt(int64(period)))

	for i := period; i < len(trueRanges); i++ {
		atr = (atr.Mul(decimal.NewFromInt(int64(period - 1))).Add(trueRanges[i])).
			Div(decimal.NewFromInt(int64(period)))
	}

	return atr
}
