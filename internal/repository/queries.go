package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Schema expected by the queries below:
//
//	assets(id serial, ticker text unique, name text, type text, industry text,
//	       created_at timestamptz, modified_at timestamptz)
//	daily_bars(asset_id int references assets, date date,
//	           open numeric, high numeric, low numeric, close numeric, volume numeric,
//	           primary key (asset_id, date))
const (
	getAssetByTicker = `
SELECT id, ticker, name, type, industry, created_at, modified_at
FROM assets
WHERE ticker = $1`

	listAssets = `
SELECT id, ticker, name, type, industry, created_at, modified_at
FROM assets
ORDER BY ticker`

	getDailyBars = `
SELECT a.ticker, b.date, b.open, b.high, b.low, b.close, b.volume, a.industry
FROM daily_bars b
JOIN assets a ON a.id = b.asset_id
WHERE (cardinality($1::text[]) = 0 OR a.ticker = ANY($1::text[]))
  AND ($2::date IS NULL OR b.date >= $2::date)
  AND ($3::date IS NULL OR b.date <= $3::date)
ORDER BY b.date, a.ticker`
)

type dbtx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type assetRow struct {
	ID         int32     `db:"id"`
	Ticker     string    `db:"ticker"`
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	Industry   *string   `db:"industry"`
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
}

type dailyBarRow struct {
	Ticker   string          `db:"ticker"`
	Date     time.Time       `db:"date"`
	Open     decimal.Decimal `db:"open"`
	High     decimal.Decimal `db:"high"`
	Low      decimal.Decimal `db:"low"`
	Close    decimal.Decimal `db:"close"`
	Volume   decimal.Decimal `db:"volume"`
	Industry *string         `db:"industry"`
}

type dailyBarsParams struct {
	Tickers   []string
	Starttime *time.Time
	Endtime   *time.Time
}

// queries runs the SQL above against a pgx pool.
type queries struct {
	db dbtx
}

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	rows, err := q.db.Query(ctx, getAssetByTicker, ticker)
	if err != nil {
		return assetRow{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[assetRow])
}

func (q *queries) ListAssets(ctx context.Context) ([]assetRow, error) {
	rows, err := q.db.Query(ctx, listAssets)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[assetRow])
}

func (q *queries) GetDailyBars(ctx context.Context, arg dailyBarsParams) ([]dailyBarRow, error) {
	tickers := arg.Tickers
	if tickers == nil {
		tickers = []string{}
	}
	rows, err := q.db.Query(ctx, getDailyBars, tickers, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[dailyBarRow])
}
