package engine

import (
	"rebalancer/types"
	"time"
)

// RebalanceDates picks the dates on which holdings may change. Monthly emits
// the first date of each calendar month, weekly the first date of each ISO
// week; any other frequency rebalances on every date. dates must be sorted.
func RebalanceDates(dates []time.Time, freq types.Frequency) []time.Time {
	if len(dates) == 0 {
		return nil
	}

	var key func(time.Time) [2]int
	switch freq {
	case types.Monthly:
		key = func(t time.Time) [2]int { return [2]int{t.Year(), int(t.Month())} }
	case types.Weekly:
		key = func(t time.Time) [2]int {
			y, w := t.ISOWeek()
			return [2]int{y, w}
		}
	default:
		return append([]time.Time(nil), dates...)
	}

	out := make([]time.Time, 0, len(dates)/15+1)
	var last [2]int
	for i, d := range dates {
		k := key(d)
		if i == 0 || k != last {
			out = append(out, d)
			last = k
		}
	}
	return out
}
