package engine

import (
	"context"
	"rebalancer/types"
	"time"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bar(date, symbol, closePrice string) types.PricePoint {
	c := dec(closePrice)
	return types.PricePoint{
		Date:   day(date),
		Symbol: symbol,
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: decimal.NewFromInt(1000),
	}
}

func groupedBar(date, symbol, closePrice, group string) types.PricePoint {
	p := bar(date, symbol, closePrice)
	p.Group = group
	return p
}

func sliceOf(points ...types.PricePoint) Slice {
	s := make(Slice)
	for _, p := range points {
		s[p.Symbol] = p
	}
	return s
}

func fixedWeights(w map[string]float64) Selector {
	return SelectorFunc(func(context.Context, time.Time, Slice) (map[string]float64, error) {
		return w, nil
	})
}

// equalWeightAll selects every tradable symbol of the slice.
func equalWeightAll() Selector {
	return SelectorFunc(func(_ context.Context, _ time.Time, s Slice) (map[string]float64, error) {
		out := make(map[string]float64)
		for sym, p := range s {
			if p.Tradable() {
				out[sym] = 1
			}
		}
		return out, nil
	})
}

func noCostConfig(capital string) BacktestConfig {
	return NewBacktestConfig(dec(capital), decimal.Zero, decimal.Zero)
}

var fiveDays = []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"}
