package repository

import (
	"context"
	"path/filepath"
	"rebalancer/types"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetSourceRoundTrip(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	price := decimal.RequireFromString("123.4567")
	points := []types.PricePoint{
		{Date: d2, Symbol: "B", Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromInt(7)},
		{Date: d1, Symbol: "B", Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromInt(5), Group: "bank"},
		{Date: d1, Symbol: "A", Open: price, High: price, Low: price, Close: price, Volume: decimal.NewFromInt(3), Factors: map[string]float64{"roe": 0.12}},
	}

	path := filepath.Join(t.TempDir(), "daily", "bars.parquet")
	require.NoError(t, WriteParquet(path, points))

	got, err := NewParquetSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "A", got[0].Symbol)
	assert.Equal(t, d1, got[0].Date)
	assert.True(t, got[0].Close.Equal(price))
	v, ok := got[0].Factor("roe")
	assert.True(t, ok)
	assert.Equal(t, 0.12, v)

	assert.Equal(t, "B", got[1].Symbol)
	assert.Equal(t, "bank", got[1].Group)
	assert.Equal(t, d2, got[2].Date)
	assert.True(t, got[2].Volume.Equal(decimal.NewFromInt(7)))
}

func TestParquetSourceMissingFile(t *testing.T) {
	_, err := NewParquetSource(filepath.Join(t.TempDir(), "nope.parquet")).Load(context.Background())
	assert.Error(t, err)
}
