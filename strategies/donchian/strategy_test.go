package donchian

import (
	"context"
	"rebalancer/internal/engine"
	"rebalancer/types"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// series builds one bar per day with high = low = close.
func series(symbol string, closes ...float64) []types.PricePoint {
	out := make([]types.PricePoint, 0, len(closes))
	for i, c := range closes {
		p := decimal.NewFromFloat(c)
		out = append(out, types.PricePoint{
			Date: start.AddDate(0, 0, i), Symbol: symbol,
			Open: p, High: p, Low: p, Close: p, Volume: decimal.NewFromInt(100),
		})
	}
	return out
}

func linear(from, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func selectOn(t *testing.T, cfg Config, day int, points ...[]types.PricePoint) map[string]float64 {
	t.Helper()
	var all []types.PricePoint
	for _, p := range points {
		all = append(all, p...)
	}
	tl := engine.NewTimeline(all)
	sel, err := New(tl, cfg)
	require.NoError(t, err)

	date := start.AddDate(0, 0, day)
	got, err := sel.Select(context.Background(), date, tl.Slice(date))
	require.NoError(t, err)
	return got
}

func TestSelectBreakouts(t *testing.T) {
	cfg := Config{Lookback: 5, ATRPeriod: 3}

	sideways := append(linear(100, 1, 20), 118, 117, 119, 118, 117)
	breakdown := append(linear(100, 1, 20), 118, 117, 90, 91, 92)

	got := selectOn(t, cfg, 24,
		series("UP", linear(100, 1, 25)...),
		series("DOWN", linear(200, -1, 25)...),
		series("FLAT", linear(50, 0, 25)...),
		series("SIDEWAYS", sideways...),
		series("BROKEN", breakdown...),
	)

	assert.Contains(t, got, "UP")
	assert.Contains(t, got, "SIDEWAYS", "stays long inside the channel")
	assert.NotContains(t, got, "DOWN")
	assert.NotContains(t, got, "FLAT")
	assert.NotContains(t, got, "BROKEN", "a close below the channel low exits")

	var sum float64
	for _, w := range got {
		sum += w
	}
	assert.InDelta(t, 1, sum, 1e-12)
}

func TestSelectInverseATRWeights(t *testing.T) {
	n := 30
	got := selectOn(t, Config{Lookback: 5, ATRPeriod: 3}, n-1,
		series("A", linear(100, 1, n)...),
		series("B", linear(100, 2, n)...),
	)
	require.Len(t, got, 2)

	// ATR is the constant daily step, so ATR% is step/close.
	a := 1 / (1 / (100 + float64(n-1)))
	b := 1 / (2 / (100 + 2*float64(n-1)))
	assert.InDelta(t, a/(a+b), got["A"], 1e-9)
	assert.InDelta(t, b/(a+b), got["B"], 1e-9)
}

func TestSelectMaxHoldings(t *testing.T) {
	n := 30
	got := selectOn(t, Config{Lookback: 5, ATRPeriod: 3, MaxHoldings: 1}, n-1,
		series("A", linear(100, 1, n)...),
		series("B", linear(100, 2, n)...),
	)
	assert.Equal(t, map[string]float64{"B": 1}, got, "B cleared its channel by the wider margin")
}

func TestSelectNeedsHistoryAndPrice(t *testing.T) {
	cfg := Config{Lookback: 5, ATRPeriod: 3}

	got := selectOn(t, cfg, 3, series("SHORT", linear(100, 1, 4)...))
	assert.Empty(t, got, "not enough bars for a channel")

	halted := series("HALT", linear(100, 1, 25)...)
	halted[24].Close = decimal.Zero
	got = selectOn(t, cfg, 24, halted, series("OTHER", linear(10, 0, 25)...))
	assert.Empty(t, got, "untradable on the date")
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)

	_, err = New(engine.NewTimeline(nil), Config{MaxHoldings: -1})
	assert.Error(t, err)

	sel, err := New(engine.NewTimeline(nil), Config{})
	require.NoError(t, err)
	assert.Equal(t, 20, sel.cfg.Lookback)
	assert.Equal(t, 14, sel.cfg.ATRPeriod)
}

func TestCalcATR(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		period int
		want   string
	}{
		{"not enough bars", []float64{1, 2, 3}, 3, "0"},
		{"constant step", linear(10, 2, 10), 3, "2"},
		{"wilder smoothing", []float64{10, 11, 13, 16, 16}, 3, "1.3333333333333333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calcATR(series("X", tt.closes...), tt.period)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestDonchianHighLow(t *testing.T) {
	bars := series("X", 5, 9, 3, 7)
	high, low := donchianHighLow(bars)
	assert.True(t, high.Equal(decimal.NewFromInt(9)))
	assert.True(t, low.Equal(decimal.NewFromInt(3)))

	high, low = donchianHighLow(nil)
	assert.True(t, high.IsZero())
	assert.True(t, low.IsZero())
}
