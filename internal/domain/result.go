package domain

import "time"

// DataSource records where the bars behind a result came from.
type DataSource string

const (
	SourceMarket           DataSource = "market"
	SourceSyntheticBars    DataSource = "synthetic_bars"
	SourceSyntheticOutcome DataSource = "synthetic_outcome"
	SourceNone             DataSource = "none"
)

// PerformanceMetrics is recomputed from scratch for every run. Returns,
// drawdown, win rate and volatility are percentages; BestTrade and
// WorstTrade are net dollars.
type PerformanceMetrics struct {
	TotalReturn        float64 `json:"totalReturn"`
	AnnualizedReturn   float64 `json:"annualizedReturn"`
	SharpeRatio        float64 `json:"sharpeRatio"`
	SortinoRatio       float64 `json:"sortinoRatio"`
	CalmarRatio        float64 `json:"calmarRatio"`
	MaxDrawdown        float64 `json:"maxDrawdown"`
	WinRate            float64 `json:"winRate"`
	ProfitFactor       float64 `json:"profitFactor"`
	TotalTrades        int     `json:"totalTrades"`
	AverageTradeReturn float64 `json:"averageTradeReturn"`
	BestTrade          float64 `json:"bestTrade"`
	WorstTrade         float64 `json:"worstTrade"`
	AverageHoldMinutes float64 `json:"averageHoldMinutes"`
	Volatility         float64 `json:"volatility"`
}

// BacktestResult is the complete outcome for one strategy. It is the only
// object handed to presentation layers.
type BacktestResult struct {
	StrategyID     string             `json:"strategyId"`
	StrategyName   string             `json:"strategyName,omitempty"`
	StrategyType   StrategyType       `json:"strategyType"`
	Capital        float64            `json:"capital"`
	StartDate      time.Time          `json:"startDate"`
	EndDate        time.Time          `json:"endDate"`
	Mode           Mode               `json:"mode"`
	DataSource     DataSource         `json:"dataSource"`
	Metrics        PerformanceMetrics `json:"metrics"`
	Trades         []Trade            `json:"trades"`
	EquityCurve    []EquityPoint      `json:"equityCurve"`
	DrawdownCurve  []DrawdownPoint    `json:"drawdownCurve"`
	MonthlyReturns []MonthlyReturn    `json:"monthlyReturns"`
}
