package engine

import (
	"rebalancer/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline(t *testing.T) {
	points := []types.PricePoint{
		bar("2024-01-03", "A", "11"),
		groupedBar("2024-01-02", "A", "10", "bank"),
		bar("2024-01-02", "B", "20"),
		bar("2024-01-04", "A", "12"),
		bar("2024-01-04", "B", "0"),
	}
	// intraday timestamps collapse onto their calendar date
	points[2].Date = points[2].Date.Add(15 * time.Hour)

	tl := NewTimeline(points)

	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")}, tl.Dates())
	assert.Equal(t, []time.Time{day("2024-01-03"), day("2024-01-04")}, tl.DatesBetween(day("2024-01-03"), time.Time{}))
	assert.Equal(t, []time.Time{day("2024-01-02")}, tl.DatesBetween(time.Time{}, day("2024-01-02")))
	assert.Equal(t, []string{"A", "B"}, tl.Symbols())
	assert.Equal(t, "bank", tl.Group("A"))
	assert.Equal(t, "", tl.Group("B"))

	s := tl.Slice(day("2024-01-02"))
	require.Len(t, s, 2)
	price, ok := s.Price("B")
	assert.True(t, ok)
	assert.True(t, price.Equal(dec("20")))

	_, ok = tl.Slice(day("2024-01-04")).Price("B")
	assert.False(t, ok, "zero close is not tradable")
	_, ok = tl.Slice(day("2024-01-03")).Price("B")
	assert.False(t, ok, "absent symbol has no price")

	hist := tl.History("A", day("2024-01-03"), 5)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Close.Equal(dec("10")))
	assert.True(t, hist[1].Close.Equal(dec("11")))

	hist = tl.History("A", day("2024-01-04"), 1)
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Close.Equal(dec("12")))

	assert.Nil(t, tl.History("C", day("2024-01-04"), 3))
}
