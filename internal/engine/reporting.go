package engine

import (
	"fmt"
	"io"
	"math"
	"rebalancer/types"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	tradingDaysPerYear  = 252
	tradingDaysPerMonth = 21
)

// PerformanceReport summarises a run. Every field can be recomputed from the
// daily records and trades alone. Returns and drawdowns are fractions
// (0.05 = 5%); MaxDrawdown is <= 0.
type PerformanceReport struct {
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	TradingDays      int             `json:"trading_days"`
	InitialValue     decimal.Decimal `json:"initial_value"`
	FinalValue       decimal.Decimal `json:"final_value"`
	TotalReturn      float64         `json:"total_return"`
	AnnualizedReturn float64         `json:"annualized_return"`
	MonthlyReturn    float64         `json:"monthly_return"`
	Volatility       float64         `json:"volatility"`
	MaxDrawdown      float64         `json:"max_drawdown"`
	DrawdownDuration int             `json:"drawdown_duration"`
	Sharpe           float64         `json:"sharpe"`
	Sortino          float64         `json:"sortino"`
	Calmar           float64         `json:"calmar"`
	Turnover         float64         `json:"turnover"`
	WinRate          float64         `json:"win_rate"`
	TradeCount       int             `json:"trade_count"`
	RebalanceCount   int             `json:"rebalance_count"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	TotalSlippage    decimal.Decimal `json:"total_slippage"`
}

// Analyzer reduces daily records and trades to a PerformanceReport.
type Analyzer struct {
	initialCapital decimal.Decimal
	riskFreeRate   float64
}

// NewAnalyzer takes the capital the run started with and the annual
// risk-free rate used by Sharpe and Sortino. Total and annualized returns are
// measured from initialCapital, so costs paid on the first day count; a
// non-positive initialCapital falls back to the first record's value.
func NewAnalyzer(initialCapital decimal.Decimal, annualRiskFree float64) *Analyzer {
	return &Analyzer{initialCapital: initialCapital, riskFreeRate: annualRiskFree}
}

func (a *Analyzer) Analyze(records []types.DailyRecord, trades []types.Trade) PerformanceReport {
	report := PerformanceReport{
		TradeCount:      len(trades),
		RebalanceCount:  calcRebalanceCount(trades),
		TotalCommission: decimal.Zero,
		TotalSlippage:   decimal.Zero,
	}
	for _, tr := range trades {
		report.TotalCommission = report.TotalCommission.Add(tr.Commission)
		report.TotalSlippage = report.TotalSlippage.Add(tr.SlippageCost)
	}
	if len(records) == 0 {
		return report
	}

	report.StartDate = records[0].Date
	report.EndDate = records[len(records)-1].Date
	report.TradingDays = len(records)
	report.InitialValue = records[0].PortfolioValue
	if a.initialCapital.IsPositive() {
		report.InitialValue = a.initialCapital
	}
	report.FinalValue = records[len(records)-1].PortfolioValue

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.PortfolioValue.InexactFloat64()
	}
	returns := dailyReturns(values)

	report.TotalReturn = calcTotalReturn(report.InitialValue.InexactFloat64(), values[len(values)-1])
	report.AnnualizedReturn = compoundTo(report.TotalReturn, tradingDaysPerYear, len(records))
	report.MonthlyReturn = compoundTo(report.TotalReturn, tradingDaysPerMonth, len(records))
	report.Volatility = calcVolatility(returns)
	report.MaxDrawdown, report.DrawdownDuration = calcDrawdownMetrics(values)

	rfDaily := a.riskFreeRate / tradingDaysPerYear
	report.Sharpe = calcSharpeRatio(returns, rfDaily)
	report.Sortino = calcSortinoRatio(returns, rfDaily)
	report.Calmar = calcCalmarRatio(report.AnnualizedReturn, report.MaxDrawdown)
	report.Turnover = calcTurnover(records, trades)
	report.WinRate = calcWinRate(returns)
	return report
}

// dailyReturns is the simple return between consecutive values, skipping
// steps from a non-positive value.
func dailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

func calcTotalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return finite(final/initial - 1)
}

// compoundTo rescales a total return over days to a period of periodDays.
func compoundTo(total float64, periodDays, days int) float64 {
	if days <= 0 || 1+total <= 0 {
		return 0
	}
	return finite(math.Pow(1+total, float64(periodDays)/float64(days)) - 1)
}

func calcVolatility(returns []float64) float64 {
	sd, ok := sampleStdDev(returns)
	if !ok {
		return 0
	}
	return finite(sd * math.Sqrt(tradingDaysPerYear))
}

// calcDrawdownMetrics returns the most negative (value-peak)/peak and the
// longest run of consecutive days spent below a previous peak.
func calcDrawdownMetrics(values []float64) (float64, int) {
	if len(values) == 0 {
		return 0, 0
	}
	peak := values[0]
	maxDD := 0.0
	run, longest := 0, 0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			run = 0
			continue
		}
		dd := (v - peak) / peak
		if dd < maxDD {
			maxDD = dd
		}
		if dd < 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return finite(maxDD), longest
}

func calcSharpeRatio(returns []float64, rfDaily float64) float64 {
	sd, ok := sampleStdDev(returns)
	if !ok || sd == 0 {
		return 0
	}
	return finite((mean(returns) - rfDaily) / sd * math.Sqrt(tradingDaysPerYear))
}

// calcSortinoRatio uses the annualised excess mean over the annualised
// sample deviation of the negative daily returns.
func calcSortinoRatio(returns []float64, rfDaily float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	sd, ok := sampleStdDev(downside)
	if !ok || sd == 0 {
		return 0
	}
	excess := (mean(returns) - rfDaily) * tradingDaysPerYear
	return finite(excess / (sd * math.Sqrt(tradingDaysPerYear)))
}

func calcCalmarRatio(annualized, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return finite(annualized / math.Abs(maxDrawdown))
}

// calcTurnover averages, over every calendar month with records, the traded
// gross notional divided by that month's mean portfolio value, and
// annualises by 12.
func calcTurnover(records []types.DailyRecord, trades []types.Trade) float64 {
	if len(records) == 0 || len(trades) == 0 {
		return 0
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	type monthStats struct {
		valueSum float64
		days     int
		traded   float64
	}

	months := make(map[monthKey]*monthStats)
	var order []monthKey
	for _, r := range records {
		y, m, _ := r.Date.Date()
		k := monthKey{y, m}
		s, ok := months[k]
		if !ok {
			s = &monthStats{}
			months[k] = s
			order = append(order, k)
		}
		s.valueSum += r.PortfolioValue.InexactFloat64()
		s.days++
	}
	for _, tr := range trades {
		y, m, _ := tr.Date.Date()
		if s, ok := months[monthKey{y, m}]; ok {
			s.traded += tr.GrossAmount.InexactFloat64()
		}
	}

	var sum float64
	var n int
	for _, k := range order {
		s := months[k]
		avg := s.valueSum / float64(s.days)
		if avg <= 0 {
			continue
		}
		sum += s.traded / avg
		n++
	}
	if n == 0 {
		return 0
	}
	return finite(sum / float64(n) * 12)
}

func calcWinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

func calcRebalanceCount(trades []types.Trade) int {
	days := make(map[time.Time]struct{})
	for _, tr := range trades {
		days[types.Day(tr.Date)] = struct{}{}
	}
	return len(days)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the ddof=1 standard deviation; ok is false below two
// observations.
func sampleStdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	m := mean(xs)
	var varianceSum float64
	for _, x := range xs {
		diff := x - m
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(xs)-1)), true
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// PrintReport writes a human readable summary of r to w.
func PrintReport(w io.Writer, r *Result) {
	rep := r.Report
	fmt.Fprintln(w, "===== Backtest Report =====")
	fmt.Fprintf(w, "Period:                %s ~ %s\n", rep.StartDate.Format(time.DateOnly), rep.EndDate.Format(time.DateOnly))
	fmt.Fprintf(w, "Trading Days:          %d\n", rep.TradingDays)
	fmt.Fprintf(w, "Rebalances:            %d\n", rep.RebalanceCount)

	fmt.Fprintln(w, "\n-- Returns --")
	fmt.Fprintf(w, "Final Value:           %s\n", rep.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Total Return:          %.2f%%\n", rep.TotalReturn*100)
	fmt.Fprintf(w, "Annualized Return:     %.2f%%\n", rep.AnnualizedReturn*100)
	fmt.Fprintf(w, "Monthly Return:        %.2f%%\n", rep.MonthlyReturn*100)

	fmt.Fprintln(w, "\n-- Risk --")
	fmt.Fprintf(w, "Volatility:            %.2f%%\n", rep.Volatility*100)
	fmt.Fprintf(w, "Max Drawdown:          %.2f%%\n", rep.MaxDrawdown*100)
	fmt.Fprintf(w, "Drawdown Duration:     %d days\n", rep.DrawdownDuration)
	fmt.Fprintf(w, "Sharpe Ratio:          %.2f\n", rep.Sharpe)
	fmt.Fprintf(w, "Sortino Ratio:         %.2f\n", rep.Sortino)
	fmt.Fprintf(w, "Calmar Ratio:          %.2f\n", rep.Calmar)

	fmt.Fprintln(w, "\n-- Trading --")
	fmt.Fprintf(w, "Total Trades:          %d\n", rep.TradeCount)
	fmt.Fprintf(w, "Turnover (annual):     %.2f\n", rep.Turnover)
	fmt.Fprintf(w, "Daily Win Rate:        %.2f%%\n", rep.WinRate*100)
	fmt.Fprintf(w, "Commission:            %s\n", rep.TotalCommission.StringFixed(2))
	fmt.Fprintf(w, "Slippage:              %s\n", rep.TotalSlippage.StringFixed(2))

	d := r.Diagnostics
	fmt.Fprintln(w, "\n-- Diagnostics --")
	fmt.Fprintf(w, "Skipped Symbol-Days:   %d\n", d.SkippedSymbolDays)
	fmt.Fprintf(w, "Missing Price Events:  %d\n", len(d.MissingPrices))
	fmt.Fprintf(w, "Partial Fills:         %d\n", d.PartialFillCount)
	fmt.Fprintf(w, "Unusable Dates:        %d\n", len(d.UnusableDates))
	reasons := make([]string, 0, len(d.SelectionSkips))
	for reason := range d.SelectionSkips {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "%-22s %d\n", "Skipped "+reason+":", d.SelectionSkips[reason])
	}
	fmt.Fprintln(w, "===========================")
}
