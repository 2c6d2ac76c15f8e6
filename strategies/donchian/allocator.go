package donchian

import "sort"

type candidate struct {
	symbol   string
	strength float64
	atrPct   float64
}

// allocate keeps the strongest breakouts (at most maxHoldings when > 0) and
// weights them by 1/ATR%, summing to 1.
func allocate(candidates []candidate, maxHoldings int) map[string]float64 {
	if len(candidates) == 0 {
		return map[string]float64{}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].strength != candidates[j].strength {
			return candidates[i].strength > candidates[j].strength
		}
		return candidates[i].symbol < candidates[j].symbol
	})
	if maxHoldings > 0 && len(candidates) > maxHoldings {
		candidates = candidates[:maxHoldings]
	}

	weights := make(map[string]float64, len(candidates))
	var total float64
	for _, c := range candidates {
		if c.atrPct <= 0 {
			continue
		}
		w := 1 / c.atrPct
		weights[c.symbol] = w
		total += w
	}
	for sym := range weights {
		weights[sym] /= total
	}
	return weights
}
