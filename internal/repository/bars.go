package repository

import (
	"context"
	"errors"
	"rebalancer/types"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetDailyBars returns the daily bars of symbols in [start, end] ordered by
// date then symbol. No symbols means every symbol; a zero bound is open. The
// asset's industry is carried as the bar's group.
func (db *Database) GetDailyBars(ctx context.Context, symbols []string, start, end time.Time) ([]types.PricePoint, error) {
	args := dailyBarsParams{
		Tickers:   symbols,
		Starttime: optionalTime(start),
		Endtime:   optionalTime(end),
	}
	bars, err := db.bars.GetDailyBars(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoBars
		}
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	return convertBars(bars), nil
}

func convertBars(barDAOs []dailyBarRow) []types.PricePoint {
	points := make([]types.PricePoint, 0, len(barDAOs))
	for _, dao := range barDAOs {
		points = append(points, types.PricePoint{
			Date:   types.Day(dao.Date),
			Symbol: dao.Ticker,
			Open:   dao.Open,
			High:   dao.High,
			Low:    dao.Low,
			Close:  dao.Close,
			Volume: dao.Volume,
			Group:  deref(dao.Industry),
		})
	}
	return points
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// BarQuery selects the bars a DatabaseSource loads.
type BarQuery struct {
	Symbols []string
	Start   time.Time
	End     time.Time
}

// DatabaseSource loads one BarQuery from the database as engine input.
type DatabaseSource struct {
	db    *Database
	query BarQuery
}

func (db *Database) NewSource(q BarQuery) *DatabaseSource {
	return &DatabaseSource{db: db, query: q}
}

func (s *DatabaseSource) Load(ctx context.Context) ([]types.PricePoint, error) {
	return s.db.GetDailyBars(ctx, s.query.Symbols, s.query.Start, s.query.End)
}
