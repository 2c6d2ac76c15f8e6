package main

import (
	"bytes"
	"context"
	"rebalancer/internal/config"
	"rebalancer/internal/engine"
	"rebalancer/strategies/donchian"
	"rebalancer/strategies/factorrank"
	"rebalancer/types"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelector(t *testing.T) {
	cfg := &config.Config{Strategy: config.Strategy{
		Name: config.StrategyFactorRank,
		FactorRank: config.FactorRank{
			TopN: 2,
			Factors: []config.Factor{
				{Column: "momentum", Weight: 1, Ladder: []config.LadderStep{{At: 0, Score: 0}, {At: 1, Score: 10}}},
			},
		},
	}}
	sel, err := newSelector(cfg, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &factorrank.Selector{}, sel)

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	slice := engine.Slice{}
	for i, sym := range []string{"A", "B", "C"} {
		slice[sym] = types.PricePoint{
			Symbol:  sym,
			Date:    day,
			Close:   decimal.NewFromInt(10),
			Factors: map[string]float64{"momentum": float64(i) / 4},
		}
	}
	weights, err := sel.Select(context.Background(), day, slice)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"B": 0.5, "C": 0.5}, weights)

	// Sweeps override top-n per run.
	sel, err = newSelector(cfg, nil, 1)
	require.NoError(t, err)
	weights, err = sel.Select(context.Background(), day, slice)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"C": 1}, weights)
}

func TestNewSelectorErrors(t *testing.T) {
	dup := &config.Config{Strategy: config.Strategy{
		Name: config.StrategyFactorRank,
		FactorRank: config.FactorRank{Factors: []config.Factor{
			{Column: "value", Weight: 1, Ladder: []config.LadderStep{{At: 1, Score: 0}, {At: 1, Score: 5}}},
		}},
	}}
	_, err := newSelector(dup, nil, 0)
	assert.ErrorIs(t, err, factorrank.ErrInvalidLadder)

	unknown := &config.Config{Strategy: config.Strategy{Name: "momentum"}}
	_, err = newSelector(unknown, nil, 0)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewSelectorDonchian(t *testing.T) {
	cfg := &config.Config{Strategy: config.Strategy{
		Name:     config.StrategyDonchian,
		Donchian: config.Donchian{Lookback: 10, MaxHoldings: 3},
	}}
	sel, err := newSelector(cfg, engine.NewTimeline(nil), 0)
	require.NoError(t, err)
	assert.IsType(t, &donchian.Selector{}, sel)

	_, err = newSelector(cfg, nil, 0)
	assert.Error(t, err)
}

func TestWarmupStart(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	fr := &config.Config{Strategy: config.Strategy{Name: config.StrategyFactorRank}}
	assert.Equal(t, start, warmupStart(fr, start))

	dc := &config.Config{Strategy: config.Strategy{Name: config.StrategyDonchian}}
	assert.True(t, warmupStart(dc, time.Time{}).IsZero())

	// 4*20 + 14 + 1 = 95 bars, 133 weekday-adjusted days plus 10.
	assert.Equal(t, start.AddDate(0, 0, -143), warmupStart(dc, start))
}

func TestSweepName(t *testing.T) {
	assert.Equal(t, "factorrank/top10/monthly", sweepName("factorrank", 10, types.Monthly))
	assert.Equal(t, "donchian/weekly", sweepName("donchian", 0, types.Weekly))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"Run", "Sharpe"}, [][]string{{"a", "1.50"}, {"b", ""}}, map[int]bool{1: true})

	out := buf.String()
	for _, want := range []string{"Run", "Sharpe", "a", "1.50", "b"} {
		assert.Contains(t, out, want)
	}
}
