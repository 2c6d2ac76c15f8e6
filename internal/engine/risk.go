package engine

import "math"

const maxCapPasses = 64

// ApplyRiskCaps turns raw selection weights into weights that respect the
// per-symbol and per-group caps. Non-positive and non-finite weights are
// dropped, and the rest are normalised to sum to 1. Weight removed by a cap is
// handed to symbols that still have room, in proportion to their weight.
// Only weight that cannot be placed stays in cash, so the result sums to at
// most 1. Symbols with an empty group are
// never group-capped.
func ApplyRiskCaps(weights map[string]float64, groups map[string]string, maxSingle, maxGroup float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	var sum float64
	for sym, w := range weights {
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		out[sym] = w
		sum += w
	}
	if sum > 0 {
		for sym := range out {
			out[sym] /= sum
		}
	}
	if maxSingle <= 0 || maxSingle > 1 {
		maxSingle = 1
	}
	if maxGroup <= 0 || maxGroup > 1 {
		maxGroup = 1
	}

	for pass := 0; pass < maxCapPasses; pass++ {
		excess := capWeights(out, groups, maxSingle, maxGroup)
		if excess <= weightTolerance {
			return out
		}

		sums := groupSums(out, groups)
		var room float64
		eligible := make([]string, 0, len(out))
		for sym, w := range out {
			if w >= maxSingle-weightTolerance {
				continue
			}
			if g := groups[sym]; g != "" && sums[g] >= maxGroup-weightTolerance {
				continue
			}
			eligible = append(eligible, sym)
			room += w
		}
		if len(eligible) == 0 || room <= 0 {
			return out
		}
		for _, sym := range eligible {
			out[sym] += excess * out[sym] / room
		}
	}
	capWeights(out, groups, maxSingle, maxGroup)
	return out
}

// capWeights clips symbols to maxSingle and scales over-weight groups down
// to maxGroup. It returns the total weight removed.
func capWeights(weights map[string]float64, groups map[string]string, maxSingle, maxGroup float64) float64 {
	var excess float64
	for sym, w := range weights {
		if w > maxSingle {
			excess += w - maxSingle
			weights[sym] = maxSingle
		}
	}
	for g, total := range groupSums(weights, groups) {
		if total <= maxGroup {
			continue
		}
		scale := maxGroup / total
		for sym, w := range weights {
			if groups[sym] == g {
				excess += w * (1 - scale)
				weights[sym] = w * scale
			}
		}
	}
	return excess
}

func groupSums(weights map[string]float64, groups map[string]string) map[string]float64 {
	sums := make(map[string]float64)
	for sym, w := range weights {
		if g := groups[sym]; g != "" {
			sums[g] += w
		}
	}
	return sums
}

// groupsFor resolves the group of every weighted symbol, preferring the
// group column of the date's bar over the timeline-wide value.
func groupsFor(weights map[string]float64, slice Slice, tl *Timeline) map[string]string {
	out := make(map[string]string, len(weights))
	for sym := range weights {
		if p, ok := slice[sym]; ok && p.Group != "" {
			out[sym] = p.Group
			continue
		}
		out[sym] = tl.Group(sym)
	}
	return out
}
