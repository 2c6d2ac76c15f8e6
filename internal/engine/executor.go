package engine

import (
	"math"
	"rebalancer/types"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// weightTolerance absorbs float noise when comparing target and current
// weights.
const weightTolerance = 1e-12

// executor turns target weights into trades against a portfolio. Sells are
// placed before buys so their proceeds can fund the buys, and buys never
// spend more cash than is available.
type executor struct {
	transactionCost decimal.Decimal
	slippage        decimal.Decimal
	band            float64
	policy          MissingPricePolicy
}

func newExecutor(cfg BacktestConfig) *executor {
	return &executor{
		transactionCost: cfg.TransactionCost,
		slippage:        cfg.Slippage,
		band:            cfg.RebalanceBand,
		policy:          cfg.MissingPricePolicy,
	}
}

// execute rebalances p toward target at the closes in slice. Symbols held but
// absent from target (or with weight <= 0) are sold in full. A symbol whose
// current weight is within the rebalance band of its target is left alone.
func (x *executor) execute(date time.Time, target map[string]float64, slice Slice, p *portfolio, diag *Diagnostics) ([]types.Trade, error) {
	total, _, _ := p.markToMarket(slice, x.policy)
	current := p.weights(slice, total)

	var trades []types.Trade
	topUps := make(map[string]decimal.Decimal)

	for _, sym := range p.held() {
		w := target[sym]
		price, ok := slice.Price(sym)
		if !ok {
			if w <= 0 {
				diag.addMissing(MissingPriceWarning{Date: date, Symbol: sym, Stage: missingStageExecute, Reason: "held position not sold: no price"})
			}
			continue
		}

		held := p.Shares(sym)
		if w <= 0 {
			tr, err := x.sell(date, sym, held, price, p, types.ReasonExit)
			if err != nil {
				return trades, err
			}
			trades = append(trades, tr)
			continue
		}

		if withinBand(w, current[sym], x.band) {
			continue
		}
		want := x.targetShares(total, w, price)
		switch {
		case want.LessThan(held):
			tr, err := x.sell(date, sym, held.Sub(want), price, p, types.ReasonRebalance)
			if err != nil {
				return trades, err
			}
			trades = append(trades, tr)
		case want.GreaterThan(held):
			topUps[sym] = want.Sub(held)
		}
	}

	for _, sym := range buyOrder(target) {
		price, ok := slice.Price(sym)
		if !ok {
			diag.addMissing(MissingPriceWarning{Date: date, Symbol: sym, Stage: missingStageExecute, Reason: "target symbol not bought: no price"})
			continue
		}

		var shares decimal.Decimal
		if p.Shares(sym).IsPositive() {
			s, ok := topUps[sym]
			if !ok {
				continue
			}
			shares = s
		} else {
			shares = x.targetShares(total, target[sym], price)
		}
		if !shares.IsPositive() {
			continue
		}

		tr, filled, err := x.buy(date, sym, shares, price, p, diag)
		if err != nil {
			return trades, err
		}
		if filled {
			trades = append(trades, tr)
		}
	}
	return trades, nil
}

// stopLoss sells every priced holding whose close is at least threshold
// below its average cost.
func (x *executor) stopLoss(date time.Time, threshold float64, slice Slice, p *portfolio) ([]types.Trade, error) {
	if threshold <= 0 {
		return nil, nil
	}
	limit := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(threshold))

	var trades []types.Trade
	for _, sym := range p.held() {
		price, ok := slice.Price(sym)
		if !ok {
			continue
		}
		pos := p.positions[sym]
		if price.GreaterThan(pos.AvgCost.Mul(limit)) {
			continue
		}
		tr, err := x.sell(date, sym, pos.Shares, price, p, types.ReasonStopLoss)
		if err != nil {
			return trades, err
		}
		trades = append(trades, tr)
	}
	return trades, nil
}

// targetShares is floor(total*weight / (close*(1+slippage))).
func (x *executor) targetShares(total decimal.Decimal, weight float64, closePrice decimal.Decimal) decimal.Decimal {
	buyPrice := closePrice.Mul(decimal.NewFromInt(1).Add(x.slippage))
	if !buyPrice.IsPositive() {
		return decimal.Zero
	}
	return total.Mul(decimal.NewFromFloat(weight)).Div(buyPrice).Floor()
}

func (x *executor) sell(date time.Time, sym string, shares, closePrice decimal.Decimal, p *portfolio, reason types.TradeReason) (types.Trade, error) {
	one := decimal.NewFromInt(1)
	sellPrice := closePrice.Mul(one.Sub(x.slippage))
	gross := shares.Mul(sellPrice)
	commission := gross.Mul(x.transactionCost)
	proceeds := gross.Sub(commission)

	if err := p.applySell(sym, shares, proceeds); err != nil {
		return types.Trade{}, err
	}
	return types.Trade{
		Date:           date,
		Symbol:         sym,
		Side:           types.SideSell,
		Price:          sellPrice,
		ReferencePrice: closePrice,
		Shares:         shares,
		GrossAmount:    gross,
		Commission:     commission,
		SlippageCost:   shares.Mul(closePrice).Mul(x.slippage),
		NetAmount:      proceeds,
		Reason:         reason,
	}, nil
}

// buy places a buy for shares, reducing it to what the cash covers. The bool
// is false when nothing could be bought.
func (x *executor) buy(date time.Time, sym string, shares, closePrice decimal.Decimal, p *portfolio, diag *Diagnostics) (types.Trade, bool, error) {
	one := decimal.NewFromInt(1)
	buyPrice := closePrice.Mul(one.Add(x.slippage))
	unitCost := buyPrice.Mul(one.Add(x.transactionCost))

	filled := shares
	partial := false
	if filled.Mul(unitCost).GreaterThan(p.Cash()) {
		partial = true
		filled = p.Cash().Div(unitCost).Floor()
		// Div rounds; never let the rounded quotient overspend.
		for filled.IsPositive() && filled.Mul(unitCost).GreaterThan(p.Cash()) {
			filled = filled.Sub(one)
		}
		diag.addPartialFill(PartialFill{Date: date, Symbol: sym, RequestedShares: shares, FilledShares: filled})
	}
	if !filled.IsPositive() {
		return types.Trade{}, false, nil
	}

	gross := filled.Mul(buyPrice)
	commission := gross.Mul(x.transactionCost)
	cost := gross.Add(commission)
	if err := p.applyBuy(sym, filled, cost); err != nil {
		return types.Trade{}, false, err
	}
	return types.Trade{
		Date:           date,
		Symbol:         sym,
		Side:           types.SideBuy,
		Price:          buyPrice,
		ReferencePrice: closePrice,
		Shares:         filled,
		GrossAmount:    gross,
		Commission:     commission,
		SlippageCost:   filled.Mul(closePrice).Mul(x.slippage),
		NetAmount:      cost,
		Reason:         types.ReasonRebalance,
		Partial:        partial,
	}, true, nil
}

// buyOrder returns the positive-weight symbols of target, largest weight
// first, ties broken by symbol.
func buyOrder(target map[string]float64) []string {
	out := make([]string, 0, len(target))
	for sym, w := range target {
		if w > 0 {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if target[out[i]] != target[out[j]] {
			return target[out[i]] > target[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func withinBand(target, current, band float64) bool {
	return math.Abs(target-current) <= band+weightTolerance
}
