package domain

// StrategyType identifies a strategy family. The set is closed.
type StrategyType string

const (
	StrategyMicroscalping StrategyType = "microscalping"
	StrategyMomentum      StrategyType = "momentum"
	StrategyMeanReversion StrategyType = "mean-reversion"
	StrategyBreakout      StrategyType = "breakout"
	StrategyGapAndGo      StrategyType = "gap-and-go"
	StrategyNewsScalping  StrategyType = "news-scalping"
)

// AllStrategyTypes returns every strategy type in declaration order.
func AllStrategyTypes() []StrategyType {
	return []StrategyType{
		StrategyMicroscalping,
		StrategyMomentum,
		StrategyMeanReversion,
		StrategyBreakout,
		StrategyGapAndGo,
		StrategyNewsScalping,
	}
}

// Valid reports whether t is one of the known strategy types.
func (t StrategyType) Valid() bool {
	switch t {
	case StrategyMicroscalping, StrategyMomentum, StrategyMeanReversion,
		StrategyBreakout, StrategyGapAndGo, StrategyNewsScalping:
		return true
	}
	return false
}

// Strategy is a caller-owned strategy definition. The engine never mutates it.
type Strategy struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Type       StrategyType       `json:"type" yaml:"type"`
	Parameters StrategyParameters `json:"parameters" yaml:"parameters"`
	Tickers    []string           `json:"tickers" yaml:"tickers"`
	Active     bool               `json:"active" yaml:"active"`
}

// SizingKind discriminates the position sizing representation.
type SizingKind string

const (
	SizingPercentEquity SizingKind = "percent_equity"
	SizingFixedRisk     SizingKind = "fixed_risk"
)

// Sizing is a tagged union: Value is a percentage of equity for
// SizingPercentEquity and a dollar amount at risk for SizingFixedRisk.
type Sizing struct {
	Kind  SizingKind `json:"kind" yaml:"kind"`
	Value float64    `json:"value" yaml:"value"`
}

// LevelKind discriminates how a stop-loss or take-profit distance is expressed.
type LevelKind string

const (
	LevelPercent LevelKind = "percent"
	LevelDollar  LevelKind = "dollar"
	LevelATR     LevelKind = "atr"
)

// Level is a tagged union for stop and target distances: a percent of the
// entry price, a per-share dollar amount, or a multiple of ATR at entry.
type Level struct {
	Kind  LevelKind `json:"kind" yaml:"kind"`
	Value float64   `json:"value" yaml:"value"`
}

// EntryConditions hold the generic entry pre-filters. VolumeMultiplier and
// Lookback override the family thresholds when positive.
type EntryConditions struct {
	MinBarIndex       int     `json:"minBarIndex" yaml:"min_bar_index"`
	MinVolume         int64   `json:"minVolume" yaml:"min_volume"`
	MinPriceChangePct float64 `json:"minPriceChangePct" yaml:"min_price_change_pct"`
	VolumeMultiplier  float64 `json:"volumeMultiplier,omitempty" yaml:"volume_multiplier"`
	Lookback          int     `json:"lookback,omitempty" yaml:"lookback"`
}

// ExitConditions hold the optional exit rules evaluated after stop and target.
type ExitConditions struct {
	TimeExitEnabled bool    `json:"timeExitEnabled" yaml:"time_exit_enabled"`
	MaxHoldMinutes  int     `json:"maxHoldMinutes" yaml:"max_hold_minutes"`
	TrailingEnabled bool    `json:"trailingEnabled" yaml:"trailing_enabled"`
	TrailingStopPct float64 `json:"trailingStopPct" yaml:"trailing_stop_pct"`
}

// TradingWindow bounds entries to an exchange-local "HH:MM" range.
type TradingWindow struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// StrategyParameters bundles sizing, risk, cost and timing settings.
type StrategyParameters struct {
	MaxPositions       int             `json:"maxPositions" yaml:"max_positions"`
	Sizing             Sizing          `json:"sizing" yaml:"sizing"`
	MaxTradesPerDay    int             `json:"maxTradesPerDay" yaml:"max_trades_per_day"`
	MaxTradesPerSymbol int             `json:"maxTradesPerSymbol" yaml:"max_trades_per_symbol"`
	StopLoss           Level           `json:"stopLoss" yaml:"stop_loss"`
	TakeProfit         Level           `json:"takeProfit" yaml:"take_profit"`
	Entry              EntryConditions `json:"entry" yaml:"entry"`
	Exit               ExitConditions  `json:"exit" yaml:"exit"`
	CommissionPerTrade float64         `json:"commissionPerTrade" yaml:"commission_per_trade"`
	SlippagePct        float64         `json:"slippagePct" yaml:"slippage_pct"`
	TradingHours       TradingWindow   `json:"tradingHours" yaml:"trading_hours"`
	AvoidNewsMinutes   int             `json:"avoidNewsMinutes" yaml:"avoid_news_minutes"`
}
