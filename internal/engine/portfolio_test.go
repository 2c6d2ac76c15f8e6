package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioMarkToMarket(t *testing.T) {
	tests := []struct {
		name        string
		policy      MissingPricePolicy
		slice       Slice
		wantTotal   decimal.Decimal
		wantPos     decimal.Decimal
		wantMissing []string
	}{
		{
			name:      "all priced",
			policy:    MissingPriceSkip,
			slice:     sliceOf(bar("2024-01-02", "A", "12"), bar("2024-01-02", "B", "5")),
			wantTotal: dec("1000").Add(dec("1200")).Add(dec("50")),
			wantPos:   dec("1250"),
		},
		{
			name:        "skip policy leaves out unpriced holding",
			policy:      MissingPriceSkip,
			slice:       sliceOf(bar("2024-01-02", "A", "12")),
			wantTotal:   dec("2200"),
			wantPos:     dec("1200"),
			wantMissing: []string{"B"},
		},
		{
			name:        "carry last values unpriced holding at last close",
			policy:      MissingPriceCarryLast,
			slice:       sliceOf(bar("2024-01-02", "A", "12")),
			wantTotal:   dec("2240"),
			wantPos:     dec("1240"),
			wantMissing: []string{"B"},
		},
		{
			name:        "zero close counts as missing",
			policy:      MissingPriceSkip,
			slice:       sliceOf(bar("2024-01-02", "A", "12"), bar("2024-01-02", "B", "0")),
			wantTotal:   dec("2200"),
			wantPos:     dec("1200"),
			wantMissing: []string{"B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortfolio(dec("1000"))
			p.positions["A"] = &Position{Symbol: "A", Shares: dec("100"), AvgCost: dec("10"), LastPrice: dec("10")}
			p.positions["B"] = &Position{Symbol: "B", Shares: dec("10"), AvgCost: dec("4"), LastPrice: dec("4")}

			total, pos, missing := p.markToMarket(tt.slice, tt.policy)
			assert.True(t, total.Equal(tt.wantTotal), "total got %s want %s", total, tt.wantTotal)
			assert.True(t, pos.Equal(tt.wantPos), "positions got %s want %s", pos, tt.wantPos)
			assert.True(t, total.Equal(p.Cash().Add(pos)))
			assert.Equal(t, tt.wantMissing, missing)
			assert.True(t, p.positions["A"].LastPrice.Equal(dec("12")))
		})
	}
}

func TestPortfolioApplyFills(t *testing.T) {
	p := newPortfolio(dec("10000"))

	require.NoError(t, p.applyBuy("AAPL", dec("10"), dec("1001")))
	assert.True(t, p.Cash().Equal(dec("8999")))
	assert.True(t, p.positions["AAPL"].AvgCost.Equal(dec("100.1")))

	require.NoError(t, p.applyBuy("AAPL", dec("10"), dec("1201")))
	assert.True(t, p.Shares("AAPL").Equal(dec("20")))
	assert.True(t, p.positions["AAPL"].AvgCost.Equal(dec("110.1")))

	require.NoError(t, p.applySell("AAPL", dec("5"), dec("600")))
	assert.True(t, p.Cash().Equal(dec("8398")))
	assert.True(t, p.Shares("AAPL").Equal(dec("15")))
	assert.True(t, p.positions["AAPL"].AvgCost.Equal(dec("110.1")), "selling keeps cost basis")

	require.NoError(t, p.applySell("AAPL", dec("15"), dec("1800")))
	assert.Empty(t, p.held())
	assert.True(t, p.Shares("AAPL").IsZero())
}

func TestPortfolioRejectsInvalidFills(t *testing.T) {
	p := newPortfolio(dec("100"))

	assert.ErrorIs(t, p.applyBuy("A", dec("10"), dec("100.01")), ErrInsufficientBalance)
	assert.True(t, p.Cash().Equal(dec("100")), "rejected buy leaves cash untouched")

	assert.ErrorIs(t, p.applySell("A", dec("1"), dec("10")), ErrShortSellNotAllowed)

	require.NoError(t, p.applyBuy("A", dec("10"), dec("100")))
	assert.ErrorIs(t, p.applySell("A", dec("11"), dec("110")), ErrShortSellNotAllowed)
}

func TestPortfolioWeights(t *testing.T) {
	p := newPortfolio(dec("1000"))
	p.positions["A"] = &Position{Symbol: "A", Shares: dec("100"), AvgCost: dec("10")}
	slice := sliceOf(bar("2024-01-02", "A", "10"))

	total, _, _ := p.markToMarket(slice, MissingPriceSkip)
	assert.Equal(t, map[string]float64{"A": 0.5}, p.weights(slice, total))

	view := p.snapshot(day("2024-01-02"))
	assert.True(t, view.Cash.Equal(dec("1000")))
	assert.True(t, view.Positions["A"].LastPrice.Equal(dec("10")))
}
