package main

import (
	"context"
	"fmt"
	"rebalancer/internal/config"
	"rebalancer/internal/engine"
	"rebalancer/internal/repository"
	"rebalancer/strategies/donchian"
	"rebalancer/strategies/factorrank"
	"rebalancer/types"
	"time"
)

// loadPoints reads the bars named by the data section.
func loadPoints(ctx context.Context, cfg *config.Config, bt engine.BacktestConfig) ([]types.PricePoint, error) {
	var src engine.Source
	switch cfg.Data.Source {
	case config.SourceParquet:
		src = repository.NewParquetSource(cfg.Data.Path)
	case config.SourcePostgres:
		db, err := repository.NewDatabase(ctx, cfg.Data.DBURL)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		src = db.NewSource(repository.BarQuery{
			Symbols: cfg.Data.Symbols,
			Start:   warmupStart(cfg, bt.StartDate),
			End:     bt.EndDate,
		})
	default:
		src = repository.NewCSVSource(cfg.Data.Path)
	}

	points, err := src.Load(ctx)
	if err != nil {
		return nil, &engine.StageError{Stage: engine.StageLoad, Err: err}
	}
	return points, nil
}

// warmupStart moves the database range start back far enough for the
// donchian lookback to have history on the first date.
func warmupStart(cfg *config.Config, start time.Time) time.Time {
	if start.IsZero() || cfg.Strategy.Name != config.StrategyDonchian {
		return start
	}
	d := cfg.Strategy.Donchian
	bars := 4*max(d.Lookback, 20) + max(d.ATRPeriod, 14) + 1
	// Calendar days cover weekends and holidays.
	return start.AddDate(0, 0, -bars*7/5-10)
}

// newSelector builds the configured strategy. history is only read by
// strategies that look back over past bars.
func newSelector(cfg *config.Config, history engine.HistoryProvider, topN int) (engine.Selector, error) {
	switch cfg.Strategy.Name {
	case config.StrategyDonchian:
		d := cfg.Strategy.Donchian
		return donchian.New(history, donchian.Config{
			Lookback:    d.Lookback,
			ATRPeriod:   d.ATRPeriod,
			MaxHoldings: d.MaxHoldings,
		})
	case config.StrategyFactorRank:
		fr := cfg.Strategy.FactorRank
		factors := make([]factorrank.Factor, 0, len(fr.Factors))
		for _, f := range fr.Factors {
			steps := make([]factorrank.Breakpoint, 0, len(f.Ladder))
			for _, s := range f.Ladder {
				steps = append(steps, factorrank.Breakpoint{At: s.At, Score: s.Score})
			}
			ladder, err := factorrank.NewLadder(steps...)
			if err != nil {
				return nil, fmt.Errorf("factor %s: %w", f.Column, err)
			}
			factors = append(factors, factorrank.Factor{Column: f.Column, Weight: f.Weight, Ladder: ladder})
		}
		if topN == 0 {
			topN = fr.TopN
		}
		return factorrank.New(factorrank.Config{
			Factors:          factors,
			TopN:             topN,
			MinScore:         fr.MinScore,
			Weighting:        factorrank.Weighting(fr.Weighting),
			VolatilityColumn: fr.VolatilityColumn,
		})
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", config.ErrInvalid, cfg.Strategy.Name)
	}
}
