package factorrank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"rebalancer/internal/engine"
	"sort"
	"sync"
	"time"
)

// Weighting decides how selected symbols share the portfolio.
type Weighting string

const (
	Equal      Weighting = "equal"
	InverseVol Weighting = "inverse_vol"
)

// Factor is one scored column. The composite score is the sum of
// Weight * Ladder.Score(value) over all factors.
type Factor struct {
	Column string
	Weight float64
	Ladder Ladder
}

type Config struct {
	Factors []Factor
	// TopN is the number of highest scores selected; 0 selects all.
	TopN int
	// MinScore, when set, drops candidates scoring below it.
	MinScore *float64
	// Weighting defaults to Equal. InverseVol reads VolatilityColumn
	// (default "volatility").
	Weighting        Weighting
	VolatilityColumn string
}

// SkipReason says why a symbol was not selected.
type SkipReason string

const (
	ReasonNotTradable       SkipReason = "not_tradable"
	ReasonMissingFactor     SkipReason = "missing_factor"
	ReasonMissingVolatility SkipReason = "missing_volatility"
	ReasonBelowMinScore     SkipReason = "below_min_score"
	ReasonOutsideTopN       SkipReason = "outside_top_n"
)

// Outcome is the selection result of one symbol on one date. Reason is empty
// for selected symbols; Detail names the missing column when there is one.
type Outcome struct {
	Symbol   string
	Selected bool
	Score    float64
	Reason   SkipReason
	Detail   string
}

// Selector ranks the symbols of each slice by a composite factor score and
// selects the top N. It records the outcome of every symbol for the last
// date it evaluated.
type Selector struct {
	cfg Config

	mu       sync.Mutex
	lastDate time.Time
	last     []Outcome
}

var _ engine.SkipReporter = (*Selector)(nil)

var ErrNoFactors = errors.New("factorrank: at least one factor is required")

func New(cfg Config) (*Selector, error) {
	if len(cfg.Factors) == 0 {
		return nil, ErrNoFactors
	}
	for i, f := range cfg.Factors {
		if f.Column == "" {
			return nil, fmt.Errorf("factorrank: factor %d has no column", i)
		}
	}
	if cfg.TopN < 0 {
		return nil, fmt.Errorf("factorrank: top_n must be >= 0, got %d", cfg.TopN)
	}
	switch cfg.Weighting {
	case "":
		cfg.Weighting = Equal
	case Equal, InverseVol:
	default:
		return nil, fmt.Errorf("factorrank: unknown weighting %q", cfg.Weighting)
	}
	if cfg.VolatilityColumn == "" {
		cfg.VolatilityColumn = "volatility"
	}
	return &Selector{cfg: cfg}, nil
}

// Evaluate scores every symbol of slice and returns one Outcome per symbol:
// selected symbols first by descending score, then skipped symbols by
// symbol.
func (s *Selector) Evaluate(slice engine.Slice) []Outcome {
	var scored, skipped []Outcome
	for _, sym := range slice.Symbols() {
		o := s.score(slice, sym)
		if o.Reason != "" {
			skipped = append(skipped, o)
			continue
		}
		scored = append(scored, o)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Symbol < scored[j].Symbol
	})

	out := make([]Outcome, 0, len(scored)+len(skipped))
	for i, o := range scored {
		if s.cfg.TopN > 0 && i >= s.cfg.TopN {
			o.Reason = ReasonOutsideTopN
			skipped = append(skipped, o)
			continue
		}
		o.Selected = true
		out = append(out, o)
	}
	sort.SliceStable(skipped, func(i, j int) bool { return skipped[i].Symbol < skipped[j].Symbol })
	return append(out, skipped...)
}

func (s *Selector) score(slice engine.Slice, sym string) Outcome {
	o := Outcome{Symbol: sym}
	p := slice[sym]
	if !p.Tradable() {
		o.Reason = ReasonNotTradable
		return o
	}
	for _, f := range s.cfg.Factors {
		v, ok := p.Factor(f.Column)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			o.Reason = ReasonMissingFactor
			o.Detail = f.Column
			return o
		}
		o.Score += f.Weight * f.Ladder.Score(v)
	}
	if s.cfg.MinScore != nil && o.Score < *s.cfg.MinScore {
		o.Reason = ReasonBelowMinScore
		return o
	}
	if s.cfg.Weighting == InverseVol {
		if vol, ok := p.Factor(s.cfg.VolatilityColumn); !ok || !(vol > 0) || math.IsInf(vol, 0) {
			o.Reason = ReasonMissingVolatility
			o.Detail = s.cfg.VolatilityColumn
			return o
		}
	}
	return o
}

func (s *Selector) Select(ctx context.Context, date time.Time, slice engine.Slice) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outcomes := s.Evaluate(slice)

	s.mu.Lock()
	s.lastDate = date
	s.last = outcomes
	s.mu.Unlock()

	weights := make(map[string]float64)
	for _, o := range outcomes {
		if !o.Selected {
			break
		}
		switch s.cfg.Weighting {
		case InverseVol:
			vol, _ := slice[o.Symbol].Factor(s.cfg.VolatilityColumn)
			weights[o.Symbol] = 1 / vol
		default:
			weights[o.Symbol] = 1
		}
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	for sym := range weights {
		weights[sym] /= total
	}
	return weights, nil
}

// Skips reports the symbols the most recent Select call did not select.
func (s *Selector) Skips() []engine.SelectionSkip {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []engine.SelectionSkip
	for _, o := range s.last {
		if o.Selected {
			continue
		}
		out = append(out, engine.SelectionSkip{Date: s.lastDate, Symbol: o.Symbol, Reason: string(o.Reason), Detail: o.Detail})
	}
	return out
}

// LastOutcomes returns the date and outcomes of the most recent Select call.
func (s *Selector) LastOutcomes() (time.Time, []Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDate, append([]Outcome(nil), s.last...)
}
