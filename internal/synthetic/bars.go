// Package synthetic generates plausible bars and trade outcomes from a
// seeded stream when real market data is unavailable.
package synthetic

import (
	"math"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/seq"
	"tradelab/internal/util"
)

// DefaultBarMinutes is the synthetic bar interval.
const DefaultBarMinutes = 5

// Session returns the exchange-local session bounds for mode as minutes
// after midnight: regular hours for single, extended hours for multi.
func Session(mode domain.Mode) (open, close int) {
	if mode == domain.ModeMulti {
		return 4 * 60, 20 * 60
	}
	return 9*60 + 30, 16 * 60
}

// volumeScale is the multi-session activity multiplier.
func volumeScale(mode domain.Mode) float64 {
	if mode == domain.ModeMulti {
		return 2
	}
	return 1
}

// Bars produces a random-walk bar series for ticker covering every day in
// days. Prices carry over from one day to the next. The same generator
// state always produces the same series.
func Bars(gen *seq.Generator, ticker string, days []time.Time, mode domain.Mode, barMinutes int) []domain.Bar {
	if barMinutes <= 0 {
		barMinutes = DefaultBarMinutes
	}
	open, close := Session(mode)
	perDay := (close - open) / barMinutes
	scale := volumeScale(mode)

	price := startPrice(gen)
	baseVol := 20000 + gen.Range(0, 80000)
	// Per-bar volatility between 0.1% and 0.4%.
	sigma := gen.Range(0.001, 0.004)

	bars := make([]domain.Bar, 0, perDay*len(days))
	for _, day := range days {
		// Overnight gap.
		price = math.Max(1, price*(1+gen.Normalish()*sigma*3))
		start := util.SessionTime(day, open/60, open%60)

		for i := 0; i < perDay; i++ {
			o := price
			c := math.Max(1, o*(1+gen.Normalish()*sigma))
			hi := math.Max(o, c) * (1 + math.Abs(gen.Normalish())*sigma/2)
			lo := math.Min(o, c) * (1 - math.Abs(gen.Normalish())*sigma/2)

			vol := baseVol * (0.5 + gen.Float64()) * scale
			if gen.Float64() < 0.08 {
				vol *= 2 + gen.Range(0, 3)
			}
			// U-shaped intraday volume.
			if i < perDay/10 || i >= perDay-perDay/10 {
				vol *= 1.5
			}

			bars = append(bars, domain.Bar{
				Symbol:    ticker,
				Timestamp: start.Add(time.Duration(i*barMinutes) * time.Minute),
				Open:      roundCents(o),
				High:      roundCents(hi),
				Low:       roundCents(math.Max(0.01, lo)),
				Close:     roundCents(c),
				Volume:    int64(vol),
			})
			price = c
		}
	}
	return bars
}

func startPrice(gen *seq.Generator) float64 {
	return roundCents(20 + gen.Range(0, 280))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
