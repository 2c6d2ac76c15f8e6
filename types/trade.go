package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type TradeReason string

const (
	ReasonRebalance TradeReason = "rebalance"
	ReasonExit      TradeReason = "exit"
	ReasonStopLoss  TradeReason = "stop_loss"
)

// Trade is one executed order. Price is the execution price after slippage,
// ReferencePrice the close it was derived from. NetAmount is the cash that
// left (buy) or entered (sell) the account.
type Trade struct {
	Date           time.Time       `json:"date"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"action"`
	Price          decimal.Decimal `json:"price"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	Shares         decimal.Decimal `json:"shares"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	Commission     decimal.Decimal `json:"commission"`
	SlippageCost   decimal.Decimal `json:"slippage_cost"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	Reason         TradeReason     `json:"reason"`
	Partial        bool            `json:"partial"`
}
