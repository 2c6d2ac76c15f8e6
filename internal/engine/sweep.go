package engine

import (
	"context"
	"rebalancer/types"

	"golang.org/x/sync/errgroup"
)

// SweepRun is one configuration of a parameter sweep. Each run needs its own
// Selector instance when the selector keeps state.
type SweepRun struct {
	Name     string
	Config   BacktestConfig
	Selector Selector
}

type SweepResult struct {
	Name   string
	Result *Result
	Err    error
}

// Sweep backtests every run over the same price data, at most limit at a
// time (limit <= 0 means unbounded). Runs share only the read-only timeline.
// A failing run reports its error in its SweepResult and does not stop the
// others; results are returned in input order.
func Sweep(ctx context.Context, points []types.PricePoint, runs []SweepRun, limit int, opts ...Option) []SweepResult {
	tl := NewTimeline(points)
	results := make([]SweepResult, len(runs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, run := range runs {
		g.Go(func() error {
			results[i] = runOne(ctx, tl, run, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runOne(ctx context.Context, tl *Timeline, run SweepRun, opts []Option) SweepResult {
	res := SweepResult{Name: run.Name}
	eng, err := NewEngine(run.Config, run.Selector, append(append([]Option(nil), opts...), WithTimeline(tl))...)
	if err != nil {
		res.Err = err
		return res
	}
	res.Result, res.Err = eng.Run(ctx)
	return res
}
