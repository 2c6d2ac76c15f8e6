package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"rebalancer/types"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
)

// BarRecord is the Parquet schema for daily bar files. Prices are stored as
// decimal strings so round trips are exact.
type BarRecord struct {
	Symbol    string             `parquet:"symbol"`
	Timestamp int64              `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      string             `parquet:"open"`
	High      string             `parquet:"high"`
	Low       string             `parquet:"low"`
	Close     string             `parquet:"close"`
	Volume    string             `parquet:"volume"`
	Group     string             `parquet:"group"`
	Factors   map[string]float64 `parquet:"factors"`
}

// ParquetSource reads daily bars from one Parquet file of BarRecord rows.
type ParquetSource struct {
	Path string
}

func NewParquetSource(path string) *ParquetSource {
	return &ParquetSource{Path: path}
}

func (s *ParquetSource) Load(_ context.Context) ([]types.PricePoint, error) {
	records, err := parquet.ReadFile[BarRecord](s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	points := make([]types.PricePoint, 0, len(records))
	for i, r := range records {
		p, err := r.point()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// WriteParquet writes points to path ordered by date then symbol, creating
// the parent directory.
func WriteParquet(path string, points []types.PricePoint) error {
	records := make([]BarRecord, 0, len(points))
	for _, p := range points {
		records = append(records, BarRecord{
			Symbol:    p.Symbol,
			Timestamp: types.Day(p.Date).UnixMilli(),
			Open:      p.Open.String(),
			High:      p.High.String(),
			Low:       p.Low.String(),
			Close:     p.Close.String(),
			Volume:    p.Volume.String(),
			Group:     p.Group,
			Factors:   p.Factors,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].Symbol < records[j].Symbol
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func (r BarRecord) point() (types.PricePoint, error) {
	p := types.PricePoint{
		Date:    types.Day(time.UnixMilli(r.Timestamp).UTC()),
		Symbol:  r.Symbol,
		Group:   r.Group,
		Factors: r.Factors,
	}
	var err error
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", r.Open, &p.Open},
		{"high", r.High, &p.High},
		{"low", r.Low, &p.Low},
		{"close", r.Close, &p.Close},
		{"volume", r.Volume, &p.Volume},
	} {
		if *f.dst, err = parseDecimal(f.name, f.raw); err != nil {
			return p, err
		}
	}
	if len(p.Factors) == 0 {
		p.Factors = nil
	}
	return p, nil
}
