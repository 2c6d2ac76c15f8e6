package engine

import (
	"math"
	"rebalancer/types"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func recordsFor(start string, values ...string) []types.DailyRecord {
	d := day(start)
	out := make([]types.DailyRecord, 0, len(values))
	for _, v := range values {
		out = append(out, types.DailyRecord{Date: d, PortfolioValue: dec(v), Cash: dec(v)})
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func TestCalcDrawdownMetrics(t *testing.T) {
	tests := []struct {
		name         string
		values       []float64
		wantDD       float64
		wantDuration int
	}{
		{"empty", nil, 0, 0},
		{"monotonic up", []float64{100, 101, 102}, 0, 0},
		{"single trough", []float64{100, 120, 90, 110}, -0.25, 2},
		{"recovers then dips", []float64{100, 90, 100, 95, 94, 93, 101}, -0.1, 3},
		{"flat", []float64{100, 100, 100}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, duration := calcDrawdownMetrics(tt.values)
			if math.Abs(dd-tt.wantDD) > 1e-12 {
				t.Errorf("calcDrawdownMetrics() dd = %v, want %v", dd, tt.wantDD)
			}
			if duration != tt.wantDuration {
				t.Errorf("calcDrawdownMetrics() duration = %v, want %v", duration, tt.wantDuration)
			}
		})
	}
}

func TestCalcSharpeRatio(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		rfDaily float64
		want    float64
	}{
		{"too few returns", []float64{0.01}, 0, 0},
		{"zero variance", []float64{0.01, 0.01, 0.01}, 0, 0},
		{"no risk free", []float64{0.01, -0.01, 0.02}, 0, 4 * math.Sqrt(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calcSharpeRatio(tt.returns, tt.rfDaily)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("calcSharpeRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalcSortinoRatio(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"no downside", []float64{0.01, 0.02, 0.03}, 0},
		{"single downside observation", []float64{0.01, -0.01, 0.02}, 0},
		{"equal downside", []float64{0.02, -0.01, -0.01}, 0},
		// mean 0, so the excess return and the ratio are 0
		{"zero mean", []float64{0.03, -0.01, -0.02}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calcSortinoRatio(tt.returns, 0)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("calcSortinoRatio() = %v, want %v", got, tt.want)
			}
		})
	}

	got := calcSortinoRatio([]float64{0.05, -0.01, -0.03}, 0)
	// mean 1/300, downside sd sqrt(0.0002)
	want := (0.01 / 3 * tradingDaysPerYear) / (math.Sqrt(0.0002) * math.Sqrt(tradingDaysPerYear))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("calcSortinoRatio() = %v, want %v", got, want)
	}
}

func TestCalcTurnover(t *testing.T) {
	records := []types.DailyRecord{
		{Date: day("2024-01-30"), PortfolioValue: dec("1000")},
		{Date: day("2024-01-31"), PortfolioValue: dec("1000")},
		{Date: day("2024-02-01"), PortfolioValue: dec("1000")},
		{Date: day("2024-02-02"), PortfolioValue: dec("1000")},
	}
	trades := []types.Trade{
		{Date: day("2024-01-30"), GrossAmount: dec("300")},
		{Date: day("2024-01-31"), GrossAmount: dec("200")},
	}

	if got := calcTurnover(records, trades); math.Abs(got-3) > 1e-12 {
		t.Errorf("calcTurnover() = %v, want 3", got)
	}
	if got := calcTurnover(records, nil); got != 0 {
		t.Errorf("calcTurnover() without trades = %v, want 0", got)
	}
}

func TestAnalyze(t *testing.T) {
	records := recordsFor("2024-01-02", "100", "101", "99.99", "101.9898")
	trades := []types.Trade{
		{Date: day("2024-01-02"), Side: types.SideBuy, GrossAmount: dec("50"), Commission: dec("0.05"), SlippageCost: dec("0.1")},
		{Date: day("2024-01-02"), Side: types.SideBuy, GrossAmount: dec("40"), Commission: dec("0.04"), SlippageCost: dec("0.08")},
		{Date: day("2024-01-04"), Side: types.SideSell, GrossAmount: dec("10"), Commission: dec("0.01"), SlippageCost: dec("0.02")},
	}

	got := NewAnalyzer(decimal.Zero, 0).Analyze(records, trades)

	if got.TradingDays != 4 {
		t.Errorf("TradingDays = %v, want 4", got.TradingDays)
	}
	if !got.InitialValue.Equal(dec("100")) || !got.FinalValue.Equal(dec("101.9898")) {
		t.Errorf("Initial/Final = %v/%v", got.InitialValue, got.FinalValue)
	}
	if math.Abs(got.TotalReturn-0.019898) > 1e-9 {
		t.Errorf("TotalReturn = %v, want 0.019898", got.TotalReturn)
	}
	wantAnnual := math.Pow(1.019898, 252.0/4) - 1
	if math.Abs(got.AnnualizedReturn-wantAnnual) > 1e-6 {
		t.Errorf("AnnualizedReturn = %v, want %v", got.AnnualizedReturn, wantAnnual)
	}
	if math.Abs(got.Sharpe-4*math.Sqrt(3)) > 1e-6 {
		t.Errorf("Sharpe = %v, want %v", got.Sharpe, 4*math.Sqrt(3))
	}
	if got.Sortino != 0 {
		t.Errorf("Sortino = %v, want 0 with a single down day", got.Sortino)
	}
	if math.Abs(got.MaxDrawdown-(-0.01)) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want -0.01", got.MaxDrawdown)
	}
	if got.DrawdownDuration != 1 {
		t.Errorf("DrawdownDuration = %v, want 1", got.DrawdownDuration)
	}
	if math.Abs(got.WinRate-2.0/3) > 1e-12 {
		t.Errorf("WinRate = %v, want 2/3", got.WinRate)
	}
	if got.TradeCount != 3 || got.RebalanceCount != 2 {
		t.Errorf("TradeCount/RebalanceCount = %v/%v, want 3/2", got.TradeCount, got.RebalanceCount)
	}
	if !got.TotalCommission.Equal(dec("0.1")) || !got.TotalSlippage.Equal(dec("0.2")) {
		t.Errorf("costs = %v/%v, want 0.1/0.2", got.TotalCommission, got.TotalSlippage)
	}
}

func TestAnalyzeDegenerate(t *testing.T) {
	tests := []struct {
		name    string
		records []types.DailyRecord
	}{
		{"no records", nil},
		{"single record", recordsFor("2024-01-02", "100")},
		{"flat values", recordsFor("2024-01-02", "100", "100", "100", "100")},
		{"wiped out", recordsFor("2024-01-02", "100", "0", "0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAnalyzer(decimal.Zero, 0.02).Analyze(tt.records, nil)
			for name, v := range map[string]float64{
				"TotalReturn":      got.TotalReturn,
				"AnnualizedReturn": got.AnnualizedReturn,
				"Volatility":       got.Volatility,
				"Sharpe":           got.Sharpe,
				"Sortino":          got.Sortino,
				"Calmar":           got.Calmar,
				"Turnover":         got.Turnover,
			} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("%s is not finite: %v", name, v)
				}
			}
			if tt.name == "flat values" && (got.Sharpe != 0 || got.Volatility != 0 || got.MaxDrawdown != 0) {
				t.Errorf("flat values: sharpe %v vol %v dd %v, want zeros", got.Sharpe, got.Volatility, got.MaxDrawdown)
			}
		})
	}
}

func TestAnalyzeMeasuresFromInitialCapital(t *testing.T) {
	records := []types.DailyRecord{
		{Date: day("2024-03-01"), PortfolioValue: dec("997"), CumulativeReturn: -0.003},
		{Date: day("2024-03-04"), PortfolioValue: dec("1007"), CumulativeReturn: 0.007},
	}

	tests := []struct {
		name        string
		capital     decimal.Decimal
		wantInitial string
		wantTotal   float64
	}{
		{"initial capital", dec("1000"), "1000", 0.007},
		{"no capital falls back to first record", decimal.Zero, "997", 1007.0/997 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAnalyzer(tt.capital, 0).Analyze(records, nil)
			if !got.InitialValue.Equal(dec(tt.wantInitial)) {
				t.Errorf("InitialValue = %v, want %v", got.InitialValue, tt.wantInitial)
			}
			if math.Abs(got.TotalReturn-tt.wantTotal) > 1e-12 {
				t.Errorf("TotalReturn = %v, want %v", got.TotalReturn, tt.wantTotal)
			}
			if !got.StartDate.Equal(day("2024-03-01")) || !got.EndDate.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("period = %v ~ %v", got.StartDate, got.EndDate)
			}
		})
	}
}
