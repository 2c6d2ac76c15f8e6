package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"rebalancer/types"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMissingColumn = errors.New("required column missing")

// CSVSource reads daily bars from a CSV file with a header row. The columns
// date, symbol and close are required; open, high, low and volume are
// optional. A group or industry column sets the bar's group and every other
// column is read as a numeric factor. An empty cell leaves the value unset.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Load(ctx context.Context) ([]types.PricePoint, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadBarsCSV(ctx, f)
}

type csvLayout struct {
	date, symbol, open, high, low, close, volume, group int

	factors map[int]string
}

// ReadBarsCSV parses bars from r in the CSVSource format.
func ReadBarsCSV(ctx context.Context, r io.Reader) ([]types.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	layout, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var points []types.PricePoint
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p, err := layout.point(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}
	return points, nil
}

func parseHeader(header []string) (csvLayout, error) {
	l := csvLayout{date: -1, symbol: -1, open: -1, high: -1, low: -1, close: -1, volume: -1, group: -1, factors: make(map[int]string)}
	for i, col := range header {
		switch name := strings.ToLower(strings.TrimSpace(col)); name {
		case "date":
			l.date = i
		case "symbol", "ticker":
			l.symbol = i
		case "open":
			l.open = i
		case "high":
			l.high = i
		case "low":
			l.low = i
		case "close":
			l.close = i
		case "volume":
			l.volume = i
		case "group", "industry":
			l.group = i
		default:
			if name != "" {
				l.factors[i] = name
			}
		}
	}
	for name, idx := range map[string]int{"date": l.date, "symbol": l.symbol, "close": l.close} {
		if idx < 0 {
			return l, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return l, nil
}

func (l csvLayout) point(record []string) (types.PricePoint, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(cell(l.date))
	if err != nil {
		return types.PricePoint{}, err
	}
	p := types.PricePoint{
		Date:   date,
		Symbol: cell(l.symbol),
		Group:  cell(l.group),
	}
	if p.Symbol == "" {
		return p, errors.New("empty symbol")
	}

	if p.Close, err = parseDecimal("close", cell(l.close)); err != nil {
		return p, err
	}
	for _, f := range []struct {
		name string
		idx  int
		dst  *decimal.Decimal
	}{
		{"open", l.open, &p.Open},
		{"high", l.high, &p.High},
		{"low", l.low, &p.Low},
		{"volume", l.volume, &p.Volume},
	} {
		if *f.dst, err = parseDecimal(f.name, cell(f.idx)); err != nil {
			return p, err
		}
	}
	if l.open < 0 {
		p.Open = p.Close
	}
	if l.high < 0 {
		p.High = p.Close
	}
	if l.low < 0 {
		p.Low = p.Close
	}

	for idx, name := range l.factors {
		raw := cell(idx)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("factor %s: %w", name, err)
		}
		if p.Factors == nil {
			p.Factors = make(map[string]float64, len(l.factors))
		}
		p.Factors[name] = v
	}
	return p, nil
}

func parseDecimal(name, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", name, raw, err)
	}
	return d, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return types.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
