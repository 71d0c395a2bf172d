// Package analyzer reduces a trade log and equity curve into performance
// metrics, a drawdown curve and monthly returns.
package analyzer

import (
	"math"
	"time"

	"tradelab/internal/domain"
)

// TradingPeriodsPerYear converts an annual risk-free rate to a daily one.
const TradingPeriodsPerYear = 252

// DefaultRiskFreeRate is the annual risk-free rate used for Sharpe.
const DefaultRiskFreeRate = 0.02

// Report is everything derived from one strategy's trades and curve.
type Report struct {
	Metrics        domain.PerformanceMetrics
	DrawdownCurve  []domain.DrawdownPoint
	MonthlyReturns []domain.MonthlyReturn
}

// Analyze computes the report for one strategy. Every ratio falls back to 0
// on a zero denominator, and a run with no trades yields all-zero metrics.
func Analyze(capital float64, start, end time.Time, trades []domain.Trade, curve []domain.EquityPoint, riskFreeRate float64) Report {
	rep := Report{
		DrawdownCurve:  drawdownCurve(capital, curve),
		MonthlyReturns: monthlyReturns(capital, curve),
	}
	if len(trades) == 0 || capital <= 0 {
		return rep
	}

	m := domain.PerformanceMetrics{TotalTrades: len(trades)}

	final := capital
	if len(curve) > 0 {
		final = curve[len(curve)-1].Equity
	}
	total := (final - capital) / capital
	m.TotalReturn = total * 100

	days := end.Sub(start).Hours()/24 + 1
	if days >= 1 {
		if growth := 1 + total; growth > 0 {
			m.AnnualizedReturn = (math.Pow(growth, 365/days) - 1) * 100
		} else {
			m.AnnualizedReturn = -100
		}
	}

	m.MaxDrawdown = maxDrawdown(rep.DrawdownCurve)

	var (
		wins        int
		grossProfit float64
		grossLoss   float64
		sumPct      float64
		sumHold     float64
	)
	m.BestTrade, m.WorstTrade = trades[0].PnL, trades[0].PnL
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else if t.PnL < 0 {
			grossLoss += -t.PnL
		}
		sumPct += t.PnLPercent
		sumHold += t.HoldMinutes
		m.BestTrade = math.Max(m.BestTrade, t.PnL)
		m.WorstTrade = math.Min(m.WorstTrade, t.PnL)
	}
	n := float64(len(trades))
	m.WinRate = float64(wins) / n * 100
	m.ProfitFactor = safeDiv(grossProfit, grossLoss)
	m.AverageTradeReturn = sumPct / n
	m.AverageHoldMinutes = sumHold / n

	returns := DailyReturns(capital, curve)
	mean, std := meanStd(returns)
	m.Volatility = std * 100
	m.SharpeRatio = safeDiv(mean-riskFreeRate/TradingPeriodsPerYear, deviation(std))

	var neg []float64
	for _, r := range returns {
		if r < 0 {
			neg = append(neg, r)
		}
	}
	if len(neg) > 0 {
		_, downside := meanStd(neg)
		m.SortinoRatio = safeDiv(mean, deviation(downside))
	}
	m.CalmarRatio = safeDiv(m.AnnualizedReturn, m.MaxDrawdown)

	rep.Metrics = clean(m)
	return rep
}

// DailyReturns returns the fractional change of each curve point against
// the previous one, the first against capital.
func DailyReturns(capital float64, curve []domain.EquityPoint) []float64 {
	out := make([]float64, 0, len(curve))
	prev := capital
	for _, p := range curve {
		if prev > 0 {
			out = append(out, p.Equity/prev-1)
		} else {
			out = append(out, 0)
		}
		prev = p.Equity
	}
	return out
}

func drawdownCurve(capital float64, curve []domain.EquityPoint) []domain.DrawdownPoint {
	out := make([]domain.DrawdownPoint, 0, len(curve))
	peak := capital
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		var dd float64
		if peak > 0 {
			dd = (peak - p.Equity) / peak * 100
		}
		out = append(out, domain.DrawdownPoint{Date: p.Date, Drawdown: round(dd, 4)})
	}
	return out
}

func maxDrawdown(dd []domain.DrawdownPoint) float64 {
	var worst float64
	for _, p := range dd {
		if p.Drawdown > worst {
			worst = p.Drawdown
		}
	}
	return worst
}

func monthlyReturns(capital float64, curve []domain.EquityPoint) []domain.MonthlyReturn {
	var out []domain.MonthlyReturn
	base := capital
	for i, p := range curve {
		month := p.Date.Format("2006-01")
		if i+1 < len(curve) && curve[i+1].Date.Format("2006-01") == month {
			continue
		}
		var r float64
		if base > 0 {
			r = (p.Equity/base - 1) * 100
		}
		out = append(out, domain.MonthlyReturn{Month: month, Return: round(finite(r), 4)})
		base = p.Equity
	}
	return out
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

// deviation returns std, or 0 when std would be reported as a zero
// volatility at four decimal places.
func deviation(std float64) float64 {
	if round(std*100, 4) == 0 {
		return 0
	}
	return std
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func clean(m domain.PerformanceMetrics) domain.PerformanceMetrics {
	for _, f := range []*float64{
		&m.TotalReturn, &m.AnnualizedReturn, &m.SharpeRatio, &m.SortinoRatio,
		&m.CalmarRatio, &m.MaxDrawdown, &m.WinRate, &m.ProfitFactor,
		&m.AverageTradeReturn, &m.BestTrade, &m.WorstTrade,
		&m.AverageHoldMinutes, &m.Volatility,
	} {
		*f = finite(round(finite(*f), 4))
	}
	return m
}
