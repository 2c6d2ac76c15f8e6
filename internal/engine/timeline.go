package engine

import (
	"rebalancer/types"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Slice is every symbol's bar on one date.
type Slice map[string]types.PricePoint

// Price returns the close of symbol when the bar exists and is tradable.
func (s Slice) Price(symbol string) (decimal.Decimal, bool) {
	p, ok := s[symbol]
	if !ok || !p.Tradable() {
		return decimal.Zero, false
	}
	return p.Close, true
}

// Symbols returns the symbols of the slice in sorted order.
func (s Slice) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s Slice) anyTradable() bool {
	for _, p := range s {
		if p.Tradable() {
			return true
		}
	}
	return false
}

// Timeline is a read-only index over daily bars by date and by symbol. It is
// safe for concurrent readers once built.
type Timeline struct {
	dates    []time.Time
	byDate   map[time.Time]Slice
	bySymbol map[string][]types.PricePoint
	groups   map[string]string
}

// NewTimeline indexes points. Dates are normalised with types.Day; a later
// duplicate (date, symbol) row replaces an earlier one.
func NewTimeline(points []types.PricePoint) *Timeline {
	tl := &Timeline{
		byDate:   make(map[time.Time]Slice),
		bySymbol: make(map[string][]types.PricePoint),
		groups:   make(map[string]string),
	}
	for _, p := range points {
		p.Date = types.Day(p.Date)
		slice, ok := tl.byDate[p.Date]
		if !ok {
			slice = make(Slice)
			tl.byDate[p.Date] = slice
			tl.dates = append(tl.dates, p.Date)
		}
		slice[p.Symbol] = p
		if p.Group != "" {
			tl.groups[p.Symbol] = p.Group
		}
	}
	sort.Slice(tl.dates, func(i, j int) bool { return tl.dates[i].Before(tl.dates[j]) })

	for _, d := range tl.dates {
		for sym, p := range tl.byDate[d] {
			tl.bySymbol[sym] = append(tl.bySymbol[sym], p)
		}
	}
	return tl
}

// Len is the number of distinct dates.
func (tl *Timeline) Len() int {
	return len(tl.dates)
}

// Dates returns all dates in chronological order.
func (tl *Timeline) Dates() []time.Time {
	return append([]time.Time(nil), tl.dates...)
}

// DatesBetween returns the dates in [start, end]. A zero bound is open.
func (tl *Timeline) DatesBetween(start, end time.Time) []time.Time {
	var out []time.Time
	if !start.IsZero() {
		start = types.Day(start)
	}
	if !end.IsZero() {
		end = types.Day(end)
	}
	for _, d := range tl.dates {
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			break
		}
		out = append(out, d)
	}
	return out
}

// Slice returns the bars of one date. The result must not be modified.
func (tl *Timeline) Slice(date time.Time) Slice {
	return tl.byDate[types.Day(date)]
}

// History returns up to n bars of symbol ending at date, oldest first.
func (tl *Timeline) History(symbol string, date time.Time, n int) []types.PricePoint {
	bars := tl.bySymbol[symbol]
	if n <= 0 || len(bars) == 0 {
		return nil
	}
	date = types.Day(date)
	end := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(date) })
	start := end - n
	if start < 0 {
		start = 0
	}
	return bars[start:end]
}

// Group returns the last non-empty group column seen for symbol.
func (tl *Timeline) Group(symbol string) string {
	return tl.groups[symbol]
}

// Symbols returns every symbol in the timeline, sorted.
func (tl *Timeline) Symbols() []string {
	out := make([]string, 0, len(tl.bySymbol))
	for sym := range tl.bySymbol {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
