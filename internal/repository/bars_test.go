package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var startTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
var endTime = startTime.AddDate(0, 0, 5)

type mockBarsRepository struct {
	sqlError error
	empty    bool
	lastArg  *dailyBarsParams
}

func TestDatabase_GetDailyBars(t *testing.T) {
	type args struct {
		symbols []string
		start   time.Time
		end     time.Time
	}
	tests := []struct {
		name     string
		args     args
		repo     mockBarsRepository
		wantRows int
		wantErr  error
	}{
		{"should throw ErrNoBars on empty result", args{[]string{"AAPL"}, startTime, endTime}, mockBarsRepository{empty: true}, 0, ErrNoBars},
		{"should throw ErrNoBars on no rows", args{[]string{"AAPL"}, startTime, endTime}, mockBarsRepository{sqlError: pgx.ErrNoRows}, 0, ErrNoBars},
		{"should pass through driver errors", args{nil, startTime, endTime}, mockBarsRepository{sqlError: errBoom}, 0, errBoom},
		{"should return bars", args{[]string{"AAPL"}, startTime, endTime}, mockBarsRepository{}, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{bars: tt.repo}
			got, err := db.GetDailyBars(context.Background(), tt.args.symbols, tt.args.start, tt.args.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetDailyBars() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetDailyBars() unexpected error = %v", err)
			}
			if len(got) != tt.wantRows {
				t.Fatalf("GetDailyBars() rows = %d, want %d", len(got), tt.wantRows)
			}
			for i, p := range got {
				if p.Symbol != "AAPL" {
					t.Errorf("GetDailyBars() %s symbol got = %v, want AAPL", p.Date, p.Symbol)
				}
				if p.Group != "tech" {
					t.Errorf("GetDailyBars() %s group got = %v, want tech", p.Date, p.Group)
				}
				if !p.Date.Equal(startTime.AddDate(0, 0, i)) {
					t.Errorf("GetDailyBars() date got = %v, want %v", p.Date, startTime.AddDate(0, 0, i))
				}
				if !p.Close.Equal(decimal.NewFromInt(int64(100 + i))) {
					t.Errorf("GetDailyBars() %s close got = %v", p.Date, p.Close)
				}
			}
		})
	}
}

func TestDatabaseSource_OpenBounds(t *testing.T) {
	repo := &mockBarsRepository{lastArg: &dailyBarsParams{}}
	db := &Database{bars: repo}

	_, err := db.NewSource(BarQuery{Symbols: []string{"AAPL"}, Start: startTime}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if repo.lastArg.Starttime == nil || !repo.lastArg.Starttime.Equal(startTime) {
		t.Errorf("Load() start = %v, want %v", repo.lastArg.Starttime, startTime)
	}
	if repo.lastArg.Endtime != nil {
		t.Errorf("Load() end = %v, want open bound", repo.lastArg.Endtime)
	}
}

func (m mockBarsRepository) GetDailyBars(_ context.Context, arg dailyBarsParams) ([]dailyBarRow, error) {
	if m.lastArg != nil {
		*m.lastArg = arg
	}
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	if m.empty {
		return []dailyBarRow{}, nil
	}
	industry := "tech"
	end := endTime
	if arg.Endtime != nil {
		end = *arg.Endtime
	}
	var rows []dailyBarRow
	for i, d := 0, *arg.Starttime; d.Before(end); i, d = i+1, d.AddDate(0, 0, 1) {
		price := decimal.NewFromInt(int64(100 + i))
		rows = append(rows, dailyBarRow{
			Ticker:   arg.Tickers[0],
			Date:     d.Add(5 * time.Hour),
			Open:     price,
			High:     price,
			Low:      price,
			Close:    price,
			Volume:   decimal.NewFromInt(1000),
			Industry: &industry,
		})
	}
	return rows, nil
}
