// Package rules holds the stateless entry and exit predicates for each
// strategy family.
package rules

import (
	"math"
	"time"

	"tradelab/internal/domain"
)

// Default thresholds applied when EntryConditions leave them unset.
const (
	DefaultMinBarIndex = 20

	microscalpVolumeMult = 1.5
	momentumVolumeMult   = 1.2
	momentumLookback     = 5
	reversionLookback    = 20
	reversionDiscount    = 0.98
)

// ShouldEnter reports whether bar i of window triggers an entry for a
// strategy of type st. The generic pre-filters run first. Families without
// an entry predicate never enter.
func ShouldEnter(st domain.StrategyType, window []domain.Bar, i int, cond domain.EntryConditions) bool {
	if i <= 0 || i >= len(window) {
		return false
	}
	minIdx := cond.MinBarIndex
	if minIdx <= 0 {
		minIdx = DefaultMinBarIndex
	}
	if i < minIdx {
		return false
	}

	cur, prev := window[i], window[i-1]
	if cur.Volume < cond.MinVolume {
		return false
	}
	if cond.MinPriceChangePct > 0 {
		if prev.Close <= 0 {
			return false
		}
		if math.Abs(cur.Close/prev.Close-1)*100 < cond.MinPriceChangePct {
			return false
		}
	}

	switch st {
	case domain.StrategyMicroscalping:
		mult := orDefault(cond.VolumeMultiplier, microscalpVolumeMult)
		return float64(cur.Volume) > mult*float64(prev.Volume) && cur.Close > prev.Close

	case domain.StrategyMomentum:
		n := cond.Lookback
		if n <= 0 {
			n = momentumLookback
		}
		if i < n {
			return false
		}
		mult := orDefault(cond.VolumeMultiplier, momentumVolumeMult)
		avg := AverageVolume(window[i-n : i])
		return float64(cur.Volume) > mult*avg && cur.Close > prev.Close

	case domain.StrategyMeanReversion:
		n := cond.Lookback
		if n <= 0 {
			n = reversionLookback
		}
		if i < n {
			return false
		}
		return cur.Close < reversionDiscount*SMA(window[i-n:i])

	case domain.StrategyBreakout, domain.StrategyGapAndGo, domain.StrategyNewsScalping:
		return false
	}
	return false
}

// HasEntryRule reports whether ShouldEnter can ever fire for st. Families
// without one never open positions.
func HasEntryRule(st domain.StrategyType) bool {
	switch st {
	case domain.StrategyMicroscalping, domain.StrategyMomentum, domain.StrategyMeanReversion:
		return true
	}
	return false
}

// ShouldExit checks an open position against bar in fixed priority order:
// stop-loss, take-profit, max hold time, trailing stop. The first match
// wins. Day-end closure is the simulator's job.
func ShouldExit(pos domain.Position, bar domain.Bar, now time.Time, exit domain.ExitConditions) (bool, domain.ExitReason) {
	if !pos.Open {
		return false, ""
	}
	px := bar.Close

	if pos.StopPrice > 0 && px <= pos.StopPrice {
		return true, domain.ExitStopLoss
	}
	if pos.TargetPrice > 0 && px >= pos.TargetPrice {
		return true, domain.ExitTakeProfit
	}
	if exit.TimeExitEnabled && exit.MaxHoldMinutes > 0 {
		if now.Sub(pos.EntryTime) >= time.Duration(exit.MaxHoldMinutes)*time.Minute {
			return true, domain.ExitTime
		}
	}
	if exit.TrailingEnabled && exit.TrailingStopPct > 0 {
		peak := math.Max(pos.HighestClose, pos.EntryPrice)
		if px <= peak*(1-exit.TrailingStopPct/100) {
			return true, domain.ExitTrailingStop
		}
	}
	return false, ""
}

// SMA returns the mean close of bars, or 0 for an empty slice.
func SMA(bars []domain.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += b.Close
	}
	return sum / float64(len(bars))
}

// AverageVolume returns the mean volume of bars, or 0 for an empty slice.
func AverageVolume(bars []domain.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += float64(b.Volume)
	}
	return sum / float64(len(bars))
}

// ATR returns the average true range over the last n bars ending at index i
// (inclusive). The first bar in the window uses high minus low.
func ATR(bars []domain.Bar, i, n int) float64 {
	if i < 0 || i >= len(bars) || n <= 0 {
		return 0
	}
	from := i - n + 1
	if from < 0 {
		from = 0
	}
	var sum float64
	for j := from; j <= i; j++ {
		tr := bars[j].High - bars[j].Low
		if j > 0 {
			pc := bars[j-1].Close
			tr = math.Max(tr, math.Max(math.Abs(bars[j].High-pc), math.Abs(bars[j].Low-pc)))
		}
		sum += tr
	}
	return sum / float64(i-from+1)
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
