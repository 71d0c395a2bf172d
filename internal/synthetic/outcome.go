package synthetic

import (
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/rules"
	"tradelab/internal/seq"
	"tradelab/internal/simulator"
	"tradelab/internal/util"
)

const placeholderTicker = "SYNTH"

// winProbability is the chance a synthetic trade closes at or above entry.
var winProbability = map[domain.StrategyType]float64{
	domain.StrategyMicroscalping: 0.55,
	domain.StrategyMomentum:      0.50,
	domain.StrategyMeanReversion: 0.58,
}

// Outcome synthesizes a trade log for a strategy of type st directly,
// without bars. tickers must already be normalized; an empty list books
// trades under a placeholder symbol. The result holds one slice per entry in
// days (possibly empty), and every day is empty for families without an
// entry rule. Every trade opens and closes inside its day's trading
// window. Pricing, sizing and costs go through sim, so the trades obey the
// same arithmetic as simulated ones. equity is the starting equity; sizing
// follows the running total across days.
func Outcome(gen *seq.Generator, st domain.StrategyType, tickers []string, sim *simulator.Simulator, days []time.Time, mode domain.Mode, equity float64) [][]domain.Trade {
	out := make([][]domain.Trade, len(days))
	if !rules.HasEntryRule(st) {
		return out
	}

	plan := sim.Plan()
	if len(tickers) == 0 {
		tickers = []string{placeholderTicker}
	}

	maxPerDay := 3
	if mode == domain.ModeMulti {
		maxPerDay = 6
	}
	if maxPerDay > plan.MaxTradesPerDay {
		maxPerDay = plan.MaxTradesPerDay
	}

	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		prices[t] = startPrice(gen.Derive("price", t))
	}

	winP, ok := winProbability[st]
	if !ok {
		winP = 0.5
	}

	windowStart, windowEnd := plan.WindowStart, plan.WindowEnd
	maxHold := 60
	if plan.Exit.TimeExitEnabled && plan.Exit.MaxHoldMinutes > 0 {
		maxHold = plan.Exit.MaxHoldMinutes
	}

	for d, day := range days {
		n := gen.Intn(maxPerDay + 1)
		var dayTrades []domain.Trade
		var dayPnL float64
		for k := 0; k < n; k++ {
			ticker := tickers[gen.Intn(len(tickers))]
			price := prices[ticker] * (1 + gen.Normalish()*0.01)
			if price < 1 {
				price = 1
			}
			prices[ticker] = roundCents(price)

			span := windowEnd - windowStart
			if span < 2 {
				continue
			}
			entryMin := windowStart + gen.Intn(span-1)
			hold := 1 + gen.Intn(maxHold)
			if entryMin+hold > windowEnd {
				hold = windowEnd - entryMin
			}
			entryAt := util.SessionTime(day, entryMin/60, entryMin%60)
			exitAt := entryAt.Add(time.Duration(hold) * time.Minute)

			atr := prices[ticker] * gen.Range(0.002, 0.006)
			pos, ok := sim.Entry(ticker, entryAt, prices[ticker], atr, equity)
			if !ok {
				continue
			}

			var quote float64
			var reason domain.ExitReason
			win := gen.Float64() < winP
			switch {
			case win && gen.Float64() < 0.7:
				quote, reason = pos.TargetPrice+sim.HalfSpread(), domain.ExitTakeProfit
			case win:
				quote = pos.EntryPrice + (pos.TargetPrice-pos.EntryPrice)*gen.Range(0.1, 0.9) + sim.HalfSpread()
				reason = domain.ExitTime
			case gen.Float64() < 0.7:
				quote, reason = pos.StopPrice+sim.HalfSpread(), domain.ExitStopLoss
			default:
				quote = pos.EntryPrice - (pos.EntryPrice-pos.StopPrice)*gen.Range(0.1, 0.9) + sim.HalfSpread()
				reason = domain.ExitTime
			}

			tr := sim.Settle(pos, exitAt, roundCents(quote), reason)
			dayTrades = append(dayTrades, tr)
			dayPnL += tr.PnL
		}
		out[d] = dayTrades
		equity += dayPnL
	}
	return out
}
