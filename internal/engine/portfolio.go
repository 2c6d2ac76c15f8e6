package engine

import (
	"rebalancer/types"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// portfolio is the ledger of one run: cash plus long-only share positions.
// Only the executor changes cash and shares; valuation only refreshes
// LastPrice.
type portfolio struct {
	cash      decimal.Decimal
	positions map[string]*Position
}

type Position struct {
	Symbol    string
	Shares    decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

func (p *portfolio) Cash() decimal.Decimal {
	return p.cash
}

func (p *portfolio) Shares(symbol string) decimal.Decimal {
	if pos := p.positions[symbol]; pos != nil {
		return pos.Shares
	}
	return decimal.Zero
}

// held returns the symbols with a non-zero position, sorted.
func (p *portfolio) held() []string {
	out := make([]string, 0, len(p.positions))
	for sym, pos := range p.positions {
		if pos.Shares.IsPositive() {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// markToMarket values every position at its close in slice and returns the
// total portfolio value, the positions value and the held symbols that had
// no price. Under MissingPriceCarryLast an unpriced symbol is valued at its
// last known close; under MissingPriceSkip it contributes nothing.
func (p *portfolio) markToMarket(slice Slice, policy MissingPricePolicy) (total, positionsValue decimal.Decimal, missing []string) {
	positionsValue = decimal.Zero
	for _, sym := range p.held() {
		pos := p.positions[sym]
		price, ok := slice.Price(sym)
		if !ok {
			missing = append(missing, sym)
			if policy == MissingPriceCarryLast && pos.LastPrice.IsPositive() {
				positionsValue = positionsValue.Add(pos.Shares.Mul(pos.LastPrice))
			}
			continue
		}
		pos.LastPrice = price
		positionsValue = positionsValue.Add(pos.Shares.Mul(price))
	}
	return p.cash.Add(positionsValue), positionsValue, missing
}

// weights returns each priced holding's share of total.
func (p *portfolio) weights(slice Slice, total decimal.Decimal) map[string]float64 {
	out := make(map[string]float64)
	if !total.IsPositive() {
		return out
	}
	for _, sym := range p.held() {
		price, ok := slice.Price(sym)
		if !ok {
			continue
		}
		out[sym] = p.positions[sym].Shares.Mul(price).Div(total).InexactFloat64()
	}
	return out
}

// applyBuy adds shares bought for cost (fees included) to the ledger.
func (p *portfolio) applyBuy(symbol string, shares, cost decimal.Decimal) error {
	newCash := p.cash.Sub(cost)
	if newCash.IsNegative() {
		return ErrInsufficientBalance
	}
	p.cash = newCash

	pos := p.positions[symbol]
	if pos == nil {
		pos = &Position{Symbol: symbol}
		p.positions[symbol] = pos
	}
	pos.AvgCost = weightedAvg(pos.AvgCost, pos.Shares, cost.Div(shares), shares)
	pos.Shares = pos.Shares.Add(shares)
	return nil
}

// applySell removes shares and credits proceeds (fees already deducted).
func (p *portfolio) applySell(symbol string, shares, proceeds decimal.Decimal) error {
	pos := p.positions[symbol]
	if pos == nil || shares.GreaterThan(pos.Shares) {
		return ErrShortSellNotAllowed
	}
	p.cash = p.cash.Add(proceeds)
	pos.Shares = pos.Shares.Sub(shares)
	if pos.Shares.IsZero() {
		delete(p.positions, symbol)
	}
	return nil
}

func (p *portfolio) snapshot(curTime time.Time) types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.PositionSnapshot, len(p.positions)),
		Time:      curTime,
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = types.PositionSnapshot{
			Symbol:    pos.Symbol,
			Shares:    pos.Shares,
			AvgCost:   pos.AvgCost,
			LastPrice: pos.LastPrice,
		}
	}
	return view
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
