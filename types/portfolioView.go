package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PortfolioView struct {
	Cash      decimal.Decimal             `json:"cash"`
	Positions map[string]PositionSnapshot `json:"positions"`
	Time      time.Time                   `json:"time"`
}

type PositionSnapshot struct {
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// DailyRecord is the end-of-day snapshot of one backtest date.
// PortfolioValue always equals Cash + PositionsValue.
type DailyRecord struct {
	Date             time.Time       `json:"date"`
	PortfolioValue   decimal.Decimal `json:"portfolio_value"`
	Cash             decimal.Decimal `json:"cash"`
	PositionsValue   decimal.Decimal `json:"positions_value"`
	DailyReturn      float64         `json:"daily_return"`
	CumulativeReturn float64         `json:"cumulative_return"`
	Holdings         int             `json:"holdings"`
}
