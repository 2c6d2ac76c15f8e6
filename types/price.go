package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one symbol's daily bar. Group and Factors carry optional
// extra columns (industry, roe, volatility, ...) that selection code reads
// and the engine ignores.
type PricePoint struct {
	Date    time.Time          `json:"date"`
	Symbol  string             `json:"symbol"`
	Open    decimal.Decimal    `json:"open"`
	High    decimal.Decimal    `json:"high"`
	Low     decimal.Decimal    `json:"low"`
	Close   decimal.Decimal    `json:"close"`
	Volume  decimal.Decimal    `json:"volume"`
	Group   string             `json:"group,omitempty"`
	Factors map[string]float64 `json:"factors,omitempty"`
}

// Tradable reports whether the bar carries a usable close price.
func (p PricePoint) Tradable() bool {
	return p.Close.IsPositive()
}

// Factor returns the named extra column.
func (p PricePoint) Factor(name string) (float64, bool) {
	if p.Factors == nil {
		return 0, false
	}
	v, ok := p.Factors[name]
	return v, ok
}

// Day truncates t to midnight UTC of its calendar date. All engine lookups
// are keyed by Day values.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
