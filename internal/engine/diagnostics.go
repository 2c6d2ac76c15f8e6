package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// MissingPriceWarning records a symbol that had no usable price on a date.
// Stage is "value" when the holding was left out of the valuation and
// "execute" when a trade for it could not be placed.
type MissingPriceWarning struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Stage  string    `json:"stage"`
	Reason string    `json:"reason"`
}

// PartialFill records a buy reduced to what the available cash allowed.
type PartialFill struct {
	Date            time.Time       `json:"date"`
	Symbol          string          `json:"symbol"`
	RequestedShares decimal.Decimal `json:"requested_shares"`
	FilledShares    decimal.Decimal `json:"filled_shares"`
}

// SelectionSkip is one symbol a selector passed over on a rebalance date.
// Reason is the selector's own code, e.g. "missing_factor"; Detail names the
// column involved when there is one.
type SelectionSkip struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Reason string    `json:"reason"`
	Detail string    `json:"detail,omitempty"`
}

// Diagnostics aggregates the non-fatal conditions of a run. SelectionSkips
// counts selector skips by reason over all rebalance dates.
type Diagnostics struct {
	MissingPrices     []MissingPriceWarning `json:"missing_prices"`
	SkippedSymbolDays int                   `json:"skipped_symbol_days"`
	PartialFills      []PartialFill         `json:"partial_fills"`
	PartialFillCount  int                   `json:"partial_fill_count"`
	UnusableDates     []time.Time           `json:"unusable_dates"`
	SelectionSkips    map[string]int        `json:"selection_skips,omitempty"`
}

// addMissing records w unless the symbol was already reported on that date,
// so a gap yields one warning however many stages hit it.
func (d *Diagnostics) addMissing(w MissingPriceWarning) {
	for i := len(d.MissingPrices) - 1; i >= 0 && d.MissingPrices[i].Date.Equal(w.Date); i-- {
		if d.MissingPrices[i].Symbol == w.Symbol {
			return
		}
	}
	d.MissingPrices = append(d.MissingPrices, w)
	if w.Stage == missingStageValue {
		d.SkippedSymbolDays++
	}
}

// addSkips counts skips by reason and returns the counts of this call.
func (d *Diagnostics) addSkips(skips []SelectionSkip) map[string]int {
	if len(skips) == 0 {
		return nil
	}
	if d.SelectionSkips == nil {
		d.SelectionSkips = make(map[string]int)
	}
	counts := make(map[string]int)
	for _, sk := range skips {
		counts[sk.Reason]++
		d.SelectionSkips[sk.Reason]++
	}
	return counts
}

func (d *Diagnostics) addPartialFill(p PartialFill) {
	d.PartialFills = append(d.PartialFills, p)
	d.PartialFillCount++
}

const (
	missingStageValue   = "value"
	missingStageExecute = "execute"
)
