package factorrank

import (
	"errors"
	"sort"
)

// Breakpoint maps a factor value to a score.
type Breakpoint struct {
	At    float64
	Score float64
}

// Ladder scores a value by linear interpolation between breakpoints sorted
// by At. Values outside the ladder take the score of the nearest end. A
// decreasing ladder expresses "lower is better".
type Ladder []Breakpoint

var ErrInvalidLadder = errors.New("ladder breakpoints must have strictly increasing At")

// NewLadder sorts points by At and rejects duplicates.
func NewLadder(points ...Breakpoint) (Ladder, error) {
	l := append(Ladder(nil), points...)
	sort.Slice(l, func(i, j int) bool { return l[i].At < l[j].At })
	for i := 1; i < len(l); i++ {
		if l[i].At == l[i-1].At {
			return nil, ErrInvalidLadder
		}
	}
	return l, nil
}

// Score returns the interpolated score of x. An empty ladder returns x.
func (l Ladder) Score(x float64) float64 {
	if len(l) == 0 {
		return x
	}
	if x <= l[0].At {
		return l[0].Score
	}
	last := l[len(l)-1]
	if x >= last.At {
		return last.Score
	}
	i := sort.Search(len(l), func(i int) bool { return l[i].At >= x })
	lo, hi := l[i-1], l[i]
	return lo.Score + (x-lo.At)/(hi.At-lo.At)*(hi.Score-lo.Score)
}
