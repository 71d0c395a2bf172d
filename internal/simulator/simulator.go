package simulator

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradelab/internal/domain"
	"tradelab/internal/rules"
	"tradelab/internal/util"
)

// DefaultHalfSpread is the synthetic half-spread added to buys and
// subtracted from sells, in dollars.
const DefaultHalfSpread = 0.01

// Simulator runs one strategy's plan over individual trading days. It holds
// no state between days, so a single Simulator may replay any day.
type Simulator struct {
	plan       Plan
	halfSpread decimal.Decimal
	logger     *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithHalfSpread overrides DefaultHalfSpread. Negative values are ignored.
func WithHalfSpread(v float64) Option {
	return func(s *Simulator) {
		if v >= 0 {
			s.halfSpread = decimal.NewFromFloat(v)
		}
	}
}

// WithLogger sets the logger used for per-trade debug records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Simulator for plan.
func New(plan Plan, opts ...Option) *Simulator {
	s := &Simulator{
		plan:       plan,
		halfSpread: decimal.NewFromFloat(DefaultHalfSpread),
		logger:     util.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Plan returns the resolved plan the simulator runs.
func (s *Simulator) Plan() Plan { return s.plan }

// HalfSpread returns the configured half-spread in dollars.
func (s *Simulator) HalfSpread() float64 { return s.halfSpread.InexactFloat64() }

type event struct {
	ticker int
	index  int
	at     time.Time
}

// RunDay simulates a single trading day. barsByTicker holds each ticker's
// bars for day in ascending timestamp order; equity is the portfolio value
// at the open and drives percent-of-equity sizing. Bars are visited in
// timestamp order across tickers, ties broken by ticker order. Every
// position opened during the day is closed on or before its ticker's last
// bar. Trades are returned in exit order.
func (s *Simulator) RunDay(day time.Time, tickers []string, barsByTicker map[string][]domain.Bar, equity float64) []domain.Trade {
	var events []event
	for k, t := range tickers {
		for i, b := range barsByTicker[t] {
			events = append(events, event{ticker: k, index: i, at: b.Timestamp})
		}
	}
	sort.SliceStable(events, func(a, b int) bool {
		if !events[a].at.Equal(events[b].at) {
			return events[a].at.Before(events[b].at)
		}
		return events[a].ticker < events[b].ticker
	})

	var (
		trades      []domain.Trade
		open        = make(map[int]*domain.Position)
		entriesDay  int
		entriesTick = make(map[int]int)
	)

	for _, ev := range events {
		ticker := tickers[ev.ticker]
		bars := barsByTicker[ticker]
		bar := bars[ev.index]
		last := ev.index == len(bars)-1

		if pos, ok := open[ev.ticker]; ok {
			if bar.Close > pos.HighestClose {
				pos.HighestClose = bar.Close
			}
			exit, reason := rules.ShouldExit(*pos, bar, bar.Timestamp, s.plan.Exit)
			if !exit && last {
				exit, reason = true, domain.ExitTime
			}
			if exit {
				trades = append(trades, s.Settle(*pos, bar.Timestamp, bar.Close, reason))
				delete(open, ev.ticker)
			}
			continue
		}

		if last {
			continue
		}
		if len(open) >= s.plan.MaxPositions ||
			entriesDay >= s.plan.MaxTradesPerDay ||
			entriesTick[ev.ticker] >= s.plan.MaxTradesPerSymbol {
			continue
		}
		if !s.inWindow(bar.Timestamp) {
			continue
		}
		if !rules.ShouldEnter(s.plan.Type, bars, ev.index, s.plan.Entry) {
			continue
		}

		pos, ok := s.Entry(ticker, bar.Timestamp, bar.Close, rules.ATR(bars, ev.index, atrPeriod), equity)
		if !ok {
			continue
		}
		open[ev.ticker] = &pos
		entriesDay++
		entriesTick[ev.ticker]++
	}

	// Only reachable when a ticker's bars were unsorted; close at the last
	// bar seen so no position survives the day.
	for k := range tickers {
		if pos, ok := open[k]; ok {
			bars := barsByTicker[tickers[k]]
			lastBar := bars[len(bars)-1]
			trades = append(trades, s.Settle(*pos, lastBar.Timestamp, lastBar.Close, domain.ExitTime))
		}
	}

	if len(trades) > 0 {
		s.logger.Debug("day simulated",
			"day", day.Format("2006-01-02"),
			"trades", len(trades),
		)
	}
	return trades
}

func (s *Simulator) inWindow(ts time.Time) bool {
	m := util.ClockMinutes(ts)
	if m < s.plan.WindowStart || m >= s.plan.WindowEnd {
		return false
	}
	// News is not modelled; the buffer guards the opening print instead.
	if n := s.plan.NewsBufferMinutes; n > 0 && m >= sessionOpen && m < sessionOpen+n {
		return false
	}
	return true
}

// Entry sizes and prices a long entry at a quoted close. atr is the
// average true range at entry and only matters for atr-based levels. It
// reports false when the position would hold less than one share or a stop
// or target distance is zero.
func (s *Simulator) Entry(ticker string, at time.Time, quote, atr, equity float64) (domain.Position, bool) {
	fill := cents(decimal.NewFromFloat(quote).Add(s.halfSpread))
	if !fill.IsPositive() {
		return domain.Position{}, false
	}

	stopDist := s.distance(s.plan.StopLoss, fill, atr)
	targetDist := s.distance(s.plan.TakeProfit, fill, atr)
	if !stopDist.IsPositive() || !targetDist.IsPositive() {
		return domain.Position{}, false
	}

	eq := decimal.NewFromFloat(equity)
	var qty decimal.Decimal
	switch s.plan.Sizing.Kind {
	case domain.SizingFixedRisk:
		qty = decimal.NewFromFloat(s.plan.Sizing.Value).Div(stopDist).Floor()
	default:
		budget := eq.Mul(decimal.NewFromFloat(s.plan.Sizing.Value)).Div(decimal.NewFromInt(100))
		qty = budget.Div(fill).Floor()
	}
	// Never commit more than the day's equity to one position.
	if maxQty := eq.Div(fill).Floor(); qty.GreaterThan(maxQty) {
		qty = maxQty
	}
	if qty.LessThan(decimal.NewFromInt(1)) {
		return domain.Position{}, false
	}

	return domain.Position{
		Ticker:       ticker,
		EntryTime:    at,
		EntryPrice:   fill.InexactFloat64(),
		Quantity:     qty.IntPart(),
		StopPrice:    cents(fill.Sub(stopDist)).InexactFloat64(),
		TargetPrice:  cents(fill.Add(targetDist)).InexactFloat64(),
		HighestClose: quote,
		Open:         true,
	}, true
}

// distance converts a stop or target level into a per-share dollar amount.
func (s *Simulator) distance(l domain.Level, fill decimal.Decimal, atr float64) decimal.Decimal {
	v := decimal.NewFromFloat(l.Value)
	switch l.Kind {
	case domain.LevelDollar:
		return v
	case domain.LevelATR:
		return cents(v.Mul(decimal.NewFromFloat(atr)))
	default:
		return cents(fill.Mul(v).Div(decimal.NewFromInt(100)))
	}
}

// Settle closes pos at a quoted close and returns the finished trade with
// fees, slippage and net P&L applied.
func (s *Simulator) Settle(pos domain.Position, at time.Time, quote float64, reason domain.ExitReason) domain.Trade {
	exit := cents(decimal.NewFromFloat(quote).Sub(s.halfSpread))
	if exit.IsNegative() {
		exit = decimal.Zero
	}
	qty := decimal.NewFromInt(pos.Quantity)
	entryNotional := decimal.NewFromFloat(pos.EntryPrice).Mul(qty)
	exitNotional := exit.Mul(qty)

	gross := cents(exitNotional.Sub(entryNotional))
	fees := cents(decimal.NewFromFloat(s.plan.Commission).Mul(decimal.NewFromInt(2)))
	slip := cents(decimal.NewFromFloat(s.plan.SlippagePct).Div(decimal.NewFromInt(100)).Mul(entryNotional.Add(exitNotional)))
	net := gross.Sub(fees).Sub(slip)

	var pct float64
	if entryNotional.IsPositive() {
		pct = net.Div(entryNotional).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}

	hold := at.Sub(pos.EntryTime).Minutes()
	t := domain.Trade{
		Ticker:      pos.Ticker,
		EntryTime:   pos.EntryTime,
		ExitTime:    at,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exit.InexactFloat64(),
		Quantity:    pos.Quantity,
		GrossPnL:    gross.InexactFloat64(),
		PnL:         net.InexactFloat64(),
		PnLPercent:  pct,
		Fees:        fees.InexactFloat64(),
		Slippage:    slip.InexactFloat64(),
		ExitReason:  reason,
		HoldMinutes: math.Round(hold*100) / 100,
	}
	s.logger.Debug("trade closed",
		"ticker", t.Ticker,
		"reason", t.ExitReason,
		"qty", t.Quantity,
		"pnl", t.PnL,
	)
	return t
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
