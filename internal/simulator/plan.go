// Package simulator turns a day of bars into a trade log for one strategy.
package simulator

import (
	"tradelab/internal/domain"
	"tradelab/internal/util"
)

const (
	defaultWindowStart = 9*60 + 30
	defaultWindowEnd   = 16 * 60
	sessionOpen        = 9*60 + 30
	atrPeriod          = 14
)

// DefaultParameters returns the preset parameter bundle for a strategy
// family. Unknown types get the momentum preset.
func DefaultParameters(t domain.StrategyType) domain.StrategyParameters {
	p := domain.StrategyParameters{
		MaxPositions:       3,
		Sizing:             domain.Sizing{Kind: domain.SizingPercentEquity, Value: 10},
		MaxTradesPerDay:    10,
		MaxTradesPerSymbol: 3,
		Entry:              domain.EntryConditions{MinBarIndex: 20},
		Exit: domain.ExitConditions{
			TimeExitEnabled: true,
			MaxHoldMinutes:  60,
			TrailingStopPct: 1,
		},
		CommissionPerTrade: 1,
		SlippagePct:        0.05,
		TradingHours:       domain.TradingWindow{Start: "09:30", End: "16:00"},
	}

	switch t {
	case domain.StrategyMicroscalping:
		p.StopLoss = domain.Level{Kind: domain.LevelDollar, Value: 0.10}
		p.TakeProfit = domain.Level{Kind: domain.LevelDollar, Value: 0.20}
		p.Exit.MaxHoldMinutes = 15
		p.MaxTradesPerDay = 20
		p.MaxTradesPerSymbol = 5
	case domain.StrategyMeanReversion:
		p.StopLoss = domain.Level{Kind: domain.LevelPercent, Value: 1.5}
		p.TakeProfit = domain.Level{Kind: domain.LevelPercent, Value: 3}
		p.Exit.MaxHoldMinutes = 120
	case domain.StrategyBreakout:
		p.StopLoss = domain.Level{Kind: domain.LevelATR, Value: 1.5}
		p.TakeProfit = domain.Level{Kind: domain.LevelATR, Value: 3}
		p.Exit.TrailingEnabled = true
		p.Exit.TrailingStopPct = 1.5
	case domain.StrategyGapAndGo:
		p.StopLoss = domain.Level{Kind: domain.LevelPercent, Value: 3}
		p.TakeProfit = domain.Level{Kind: domain.LevelPercent, Value: 6}
		p.TradingHours = domain.TradingWindow{Start: "09:30", End: "11:00"}
	case domain.StrategyNewsScalping:
		p.StopLoss = domain.Level{Kind: domain.LevelDollar, Value: 0.25}
		p.TakeProfit = domain.Level{Kind: domain.LevelDollar, Value: 0.50}
		p.Exit.MaxHoldMinutes = 30
		p.AvoidNewsMinutes = 5
	default:
		p.StopLoss = domain.Level{Kind: domain.LevelPercent, Value: 2}
		p.TakeProfit = domain.Level{Kind: domain.LevelPercent, Value: 4}
	}
	return p
}

// Plan is a strategy's parameters with every tagged union resolved and
// every default filled. It is computed once per simulation.
type Plan struct {
	Type               domain.StrategyType
	Sizing             domain.Sizing
	StopLoss           domain.Level
	TakeProfit         domain.Level
	MaxPositions       int
	MaxTradesPerDay    int
	MaxTradesPerSymbol int
	Entry              domain.EntryConditions
	Exit               domain.ExitConditions
	Commission         float64
	SlippagePct        float64
	WindowStart        int // minutes after exchange-local midnight
	WindowEnd          int
	NewsBufferMinutes  int
}

// ResolvePlan resolves the active sizing and stop/target representations
// for s. A missing or non-positive representation falls back to the family
// default, as does an unparseable trading window.
func ResolvePlan(s domain.Strategy) Plan {
	def := DefaultParameters(s.Type)
	p := s.Parameters

	plan := Plan{
		Type:               s.Type,
		Sizing:             resolveSizing(p.Sizing, def.Sizing),
		StopLoss:           resolveLevel(p.StopLoss, def.StopLoss),
		TakeProfit:         resolveLevel(p.TakeProfit, def.TakeProfit),
		MaxPositions:       positiveOr(p.MaxPositions, def.MaxPositions),
		MaxTradesPerDay:    positiveOr(p.MaxTradesPerDay, def.MaxTradesPerDay),
		MaxTradesPerSymbol: positiveOr(p.MaxTradesPerSymbol, def.MaxTradesPerSymbol),
		Entry:              p.Entry,
		Exit:               p.Exit,
		Commission:         p.CommissionPerTrade,
		SlippagePct:        p.SlippagePct,
		NewsBufferMinutes:  p.AvoidNewsMinutes,
	}
	if plan.Commission < 0 {
		plan.Commission = 0
	}
	if plan.SlippagePct < 0 {
		plan.SlippagePct = 0
	}
	if plan.NewsBufferMinutes < 0 {
		plan.NewsBufferMinutes = 0
	}
	if plan.Entry.MinBarIndex <= 0 {
		plan.Entry.MinBarIndex = def.Entry.MinBarIndex
	}
	if plan.Exit.TimeExitEnabled && plan.Exit.MaxHoldMinutes <= 0 {
		plan.Exit.MaxHoldMinutes = def.Exit.MaxHoldMinutes
	}
	if plan.Exit.TrailingEnabled && plan.Exit.TrailingStopPct <= 0 {
		plan.Exit.TrailingStopPct = def.Exit.TrailingStopPct
	}

	plan.WindowStart, plan.WindowEnd = defaultWindowStart, defaultWindowEnd
	if p.TradingHours.Start != "" || p.TradingHours.End != "" {
		start, errS := util.ParseClock(p.TradingHours.Start)
		end, errE := util.ParseClock(p.TradingHours.End)
		if errS == nil && errE == nil && start < end {
			plan.WindowStart, plan.WindowEnd = start, end
		}
	}
	return plan
}

func resolveSizing(s, def domain.Sizing) domain.Sizing {
	switch s.Kind {
	case domain.SizingPercentEquity, domain.SizingFixedRisk:
		if s.Value > 0 {
			return s
		}
	}
	return def
}

func resolveLevel(l, def domain.Level) domain.Level {
	switch l.Kind {
	case domain.LevelPercent, domain.LevelDollar, domain.LevelATR:
		if l.Value > 0 {
			return l
		}
	case "":
		// Value given without a kind takes the family's kind.
		if l.Value > 0 {
			return domain.Level{Kind: def.Kind, Value: l.Value}
		}
	}
	return def
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
