package engine

import (
	"context"
	"rebalancer/types"
	"time"
)

// Source loads the daily bars a run works on.
type Source interface {
	Load(ctx context.Context) ([]types.PricePoint, error)
}

// Selector is the strategy hook called on every rebalance date. It returns
// non-negative target weights keyed by symbol; they need not sum to 1.
type Selector interface {
	Select(ctx context.Context, date time.Time, slice Slice) (map[string]float64, error)
}

// SelectorFunc adapts a plain function to Selector.
type SelectorFunc func(ctx context.Context, date time.Time, slice Slice) (map[string]float64, error)

func (f SelectorFunc) Select(ctx context.Context, date time.Time, slice Slice) (map[string]float64, error) {
	return f(ctx, date, slice)
}

// SkipReporter is implemented by selectors that can say, after Select, which
// symbols they passed over and why. The engine folds the skips into the run
// Diagnostics.
type SkipReporter interface {
	Skips() []SelectionSkip
}

// HistoryProvider gives selectors access to bars before the rebalance date.
// *Timeline implements it.
type HistoryProvider interface {
	History(symbol string, date time.Time, n int) []types.PricePoint
}
