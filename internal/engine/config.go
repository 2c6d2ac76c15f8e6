package engine

import (
	"fmt"
	"rebalancer/types"
	"time"

	"github.com/shopspring/decimal"
)

// MissingPricePolicy decides how a held symbol without a price on a date is
// valued.
type MissingPricePolicy string

const (
	// MissingPriceSkip leaves the symbol out of that date's valuation.
	MissingPriceSkip MissingPricePolicy = "skip"
	// MissingPriceCarryLast values the symbol at its last known close.
	MissingPriceCarryLast MissingPricePolicy = "carry_last"
)

// BacktestConfig holds the parameters of one run. It is validated once by
// NewEngine and never modified afterwards.
type BacktestConfig struct {
	InitialCapital     decimal.Decimal    `json:"initial_capital"`
	TransactionCost    decimal.Decimal    `json:"transaction_cost"`
	Slippage           decimal.Decimal    `json:"slippage"`
	RebalanceFreq      types.Frequency    `json:"rebalance_freq"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	MaxSinglePosition  float64            `json:"max_single_position"`
	MaxGroupPosition   float64            `json:"max_group_position"`
	RiskFreeRate       float64            `json:"risk_free_rate"`
	MissingPricePolicy MissingPricePolicy `json:"missing_price_policy"`
	RebalanceBand      float64            `json:"rebalance_band"`
	StopLoss           float64            `json:"stop_loss"`
}

// NewBacktestConfig returns a config with the given capital and costs and
// defaults for everything else: monthly rebalancing, no position caps, a 2%
// annual risk-free rate and the skip policy for missing prices.
func NewBacktestConfig(initialCapital, transactionCost, slippage decimal.Decimal) BacktestConfig {
	return BacktestConfig{
		InitialCapital:     initialCapital,
		TransactionCost:    transactionCost,
		Slippage:           slippage,
		RebalanceFreq:      types.Monthly,
		MaxSinglePosition:  1,
		MaxGroupPosition:   1,
		RiskFreeRate:       0.02,
		MissingPricePolicy: MissingPriceSkip,
	}
}

func (c BacktestConfig) Validate() error {
	one := decimal.NewFromInt(1)
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: initial_capital must be > 0, got %s", ErrInvalidConfig, c.InitialCapital)
	}
	if c.TransactionCost.IsNegative() || c.TransactionCost.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: transaction_cost must be in [0,1), got %s", ErrInvalidConfig, c.TransactionCost)
	}
	if c.Slippage.IsNegative() || c.Slippage.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: slippage must be in [0,1), got %s", ErrInvalidConfig, c.Slippage)
	}
	if c.MaxSinglePosition <= 0 || c.MaxSinglePosition > 1 {
		return fmt.Errorf("%w: max_single_position must be in (0,1], got %v", ErrInvalidConfig, c.MaxSinglePosition)
	}
	if c.MaxGroupPosition <= 0 || c.MaxGroupPosition > 1 {
		return fmt.Errorf("%w: max_group_position must be in (0,1], got %v", ErrInvalidConfig, c.MaxGroupPosition)
	}
	if c.RebalanceBand < 0 || c.RebalanceBand >= 1 {
		return fmt.Errorf("%w: rebalance_band must be in [0,1), got %v", ErrInvalidConfig, c.RebalanceBand)
	}
	if c.StopLoss < 0 || c.StopLoss >= 1 {
		return fmt.Errorf("%w: stop_loss must be in [0,1), got %v", ErrInvalidConfig, c.StopLoss)
	}
	switch c.MissingPricePolicy {
	case MissingPriceSkip, MissingPriceCarryLast:
	default:
		return fmt.Errorf("%w: unknown missing_price_policy %q", ErrInvalidConfig, c.MissingPricePolicy)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: end_date %s before start_date %s", ErrInvalidConfig,
			c.EndDate.Format(time.DateOnly), c.StartDate.Format(time.DateOnly))
	}
	return nil
}
