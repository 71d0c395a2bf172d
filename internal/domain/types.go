// Package domain defines the core types shared across the backtesting
// engine: bars, strategies, trades, equity points, and results.
package domain

import "time"

// Bar is a single OHLCV observation for a fixed time interval.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"tradeCount,omitempty"`
	VWAP       float64   `json:"vwap,omitempty"`
}

// Mode selects session coverage for synthetic data. It scales synthetic
// activity but never changes the metric formulas.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Valid reports whether m is a known mode. The empty mode is treated as
// single by the engine and is therefore valid.
func (m Mode) Valid() bool {
	switch m {
	case "", ModeSingle, ModeMulti:
		return true
	}
	return false
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTakeProfit   ExitReason = "take_profit"
	ExitTime         ExitReason = "time_exit"
	ExitTrailingStop ExitReason = "trailing_stop"
)

// Position is an open simulated position. It only exists between an entry
// decision and the matching exit.
type Position struct {
	Ticker       string
	EntryTime    time.Time
	EntryPrice   float64
	Quantity     int64
	StopPrice    float64
	TargetPrice  float64
	HighestClose float64
	Open         bool
}

// Trade is a closed round trip. PnL is net of fees and slippage.
type Trade struct {
	Ticker      string     `json:"ticker"`
	EntryTime   time.Time  `json:"entryTime"`
	ExitTime    time.Time  `json:"exitTime"`
	EntryPrice  float64    `json:"entryPrice"`
	ExitPrice   float64    `json:"exitPrice"`
	Quantity    int64      `json:"quantity"`
	GrossPnL    float64    `json:"grossPnl"`
	PnL         float64    `json:"pnl"`
	PnLPercent  float64    `json:"pnlPercent"`
	Fees        float64    `json:"fees"`
	Slippage    float64    `json:"slippage"`
	ExitReason  ExitReason `json:"exitReason"`
	HoldMinutes float64    `json:"holdMinutes"`
}

// EquityPoint is the portfolio value at the end of one trading day.
type EquityPoint struct {
	Date             time.Time `json:"date"`
	Equity           float64   `json:"equity"`
	CumulativeReturn float64   `json:"cumulativeReturn"`
}

// DrawdownPoint is the percentage decline from the running equity peak.
type DrawdownPoint struct {
	Date     time.Time `json:"date"`
	Drawdown float64   `json:"drawdown"`
}

// MonthlyReturn is the percent return of one calendar month.
type MonthlyReturn struct {
	Month  string  `json:"month"`
	Return float64 `json:"return"`
}
