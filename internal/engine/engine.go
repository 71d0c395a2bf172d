// Package engine drives backtests: it builds the trading calendar, resolves
// bar data through a source or the synthetic fallback, simulates every
// strategy day by day and reduces the results into reports.
package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradelab/internal/analyzer"
	"tradelab/internal/domain"
	"tradelab/internal/marketdata"
	"tradelab/internal/portfolio"
	"tradelab/internal/seq"
	"tradelab/internal/simulator"
	"tradelab/internal/synthetic"
	"tradelab/internal/util"
)

// ErrInvalidRequest wraps every validation failure returned by Run.
var ErrInvalidRequest = errors.New("invalid backtest request")

// Request is the input to a backtest run.
type Request struct {
	Capital    float64           `json:"capital" yaml:"capital"`
	Strategies []domain.Strategy `json:"strategies" yaml:"strategies"`
	Start      time.Time         `json:"startDate" yaml:"start"`
	End        time.Time         `json:"endDate" yaml:"end"`
	Mode       domain.Mode       `json:"mode" yaml:"mode"`
}

// Validate checks the request at the run boundary.
func (r Request) Validate() error {
	if math.IsNaN(r.Capital) || math.IsInf(r.Capital, 0) || r.Capital <= 0 {
		return fmt.Errorf("%w: capital must be positive, got %v", ErrInvalidRequest, r.Capital)
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if util.Date(r.End).Before(util.Date(r.Start)) {
		return fmt.Errorf("%w: end date %s before start date %s", ErrInvalidRequest,
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	if len(r.Strategies) == 0 {
		return fmt.Errorf("%w: at least one strategy is required", ErrInvalidRequest)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	for i, s := range r.Strategies {
		if !s.Type.Valid() {
			return fmt.Errorf("%w: strategy %d (%s): unknown type %q", ErrInvalidRequest, i, s.ID, s.Type)
		}
	}
	return nil
}

// Engine runs backtests. It holds no state between runs and is safe for
// concurrent use when its source is.
type Engine struct {
	source     marketdata.BarSource
	barMinutes int
	halfSpread float64
	riskFree   float64
	progress   func(done, total int)
	log        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBarMinutes sets the synthetic bar interval.
func WithBarMinutes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.barMinutes = n
		}
	}
}

// WithHalfSpread sets the simulated half-spread in dollars.
func WithHalfSpread(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.halfSpread = v
		}
	}
}

// WithRiskFreeRate sets the annual risk-free rate used for Sharpe.
func WithRiskFreeRate(v float64) Option {
	return func(e *Engine) { e.riskFree = v }
}

// WithProgress registers a hook called after each strategy completes.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an Engine reading bars from source. A nil source sends every
// ticker through the synthetic fallback.
func New(source marketdata.BarSource, opts ...Option) *Engine {
	e := &Engine{
		source:     source,
		barMinutes: synthetic.DefaultBarMinutes,
		halfSpread: simulator.DefaultHalfSpread,
		riskFree:   analyzer.DefaultRiskFreeRate,
		log:        slog.Default().With("component", "engine"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// run is the state scoped to one Run call.
type run struct {
	req  Request
	days []time.Time
	gen  *seq.Generator
	memo map[string]tickerData
	log  *slog.Logger
}

// Run backtests every strategy in req and returns one result per strategy,
// in request order. Only validation failures (wrapping ErrInvalidRequest)
// and context cancellation are returned as errors; data problems degrade
// to the synthetic fallback.
func (e *Engine) Run(ctx context.Context, req Request) ([]domain.BacktestResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = domain.ModeSingle
	}

	seed := seq.Seed(req.Strategies, req.Start, req.End, req.Capital)
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)
	runID := uuid.NewSHA1(uuid.NameSpaceOID, seedBytes[:])

	r := &run{
		req:  req,
		days: util.TradingDays(req.Start, req.End),
		gen:  seq.New(seed),
		memo: make(map[string]tickerData),
		log:  e.log.With("run", runID.String()),
	}
	r.log.Info("backtest started",
		"strategies", len(req.Strategies),
		"days", len(r.days),
		"capital", req.Capital,
		"mode", string(req.Mode),
	)

	results := make([]domain.BacktestResult, 0, len(req.Strategies))
	for i, s := range req.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.runStrategy(ctx, r, i, s)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if e.progress != nil {
			e.progress(i+1, len(req.Strategies))
		}
	}

	r.log.Info("backtest finished", "results", len(results))
	return results, nil
}

func (e *Engine) runStrategy(ctx context.Context, r *run, idx int, s domain.Strategy) (domain.BacktestResult, error) {
	log := r.log.With("strategy", s.ID, "type", string(s.Type))
	lc := newLifecycle(log)
	plan := simulator.ResolvePlan(s)
	sim := simulator.New(plan, simulator.WithHalfSpread(e.halfSpread), simulator.WithLogger(log))
	tracker := portfolio.NewTracker(r.req.Capital)

	res := domain.BacktestResult{
		StrategyID:   s.ID,
		StrategyName: s.Name,
		StrategyType: s.Type,
		Capital:      r.req.Capital,
		StartDate:    util.Date(r.req.Start),
		EndDate:      util.Date(r.req.End),
		Mode:         r.req.Mode,
		Trades:       []domain.Trade{},
	}

	if !s.Active {
		log.Info("strategy inactive, producing flat result")
		for _, day := range r.days {
			tracker.Record(day, nil)
		}
		res.DataSource = domain.SourceNone
		lc.advance(PhaseAggregating)
		e.finish(r, lc, &res, tracker)
		return res, nil
	}

	lc.advance(PhaseFetchingData)
	tickers := normalizeTickers(s.Tickers)
	data := make(map[string]tickerData, len(tickers))
	var withBars []string
	fellBack := false
	for _, t := range tickers {
		td, err := e.barsFor(ctx, r, t)
		if err != nil {
			return res, err
		}
		data[t] = td
		if td.origin == originSynthetic {
			fellBack = true
		}
		if len(td.bars) > 0 {
			withBars = append(withBars, t)
		}
	}

	strategyGen := r.gen.Derive("strategy", strconv.Itoa(idx), s.ID)

	if len(withBars) == 0 {
		lc.advance(PhaseFallbackSynthesis)
		log.Warn("no bars for any ticker, synthesizing outcome", "tickers", len(tickers))
		perDay := synthetic.Outcome(strategyGen.Derive("outcome"), s.Type, tickers, sim, r.days, r.req.Mode, r.req.Capital)

		lc.advance(PhaseSimulating)
		for d, day := range r.days {
			tracker.Record(day, perDay[d])
			res.Trades = append(res.Trades, perDay[d]...)
		}
		res.DataSource = domain.SourceSyntheticOutcome
		lc.advance(PhaseAggregating)
		e.finish(r, lc, &res, tracker)
		return res, nil
	}

	if fellBack {
		lc.advance(PhaseFallbackSynthesis)
		res.DataSource = domain.SourceSyntheticBars
	} else {
		res.DataSource = domain.SourceMarket
	}

	lc.advance(PhaseSimulating)
	sessOpen, sessClose := synthetic.Session(r.req.Mode)
	byDay := make(map[string]map[string][]domain.Bar, len(withBars))
	for _, t := range withBars {
		byDay[t] = splitByDay(data[t].bars, sessOpen, sessClose)
	}
	for _, day := range r.days {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		key := day.Format("2006-01-02")
		dayBars := make(map[string][]domain.Bar, len(withBars))
		for _, t := range withBars {
			if b := byDay[t][key]; len(b) > 0 {
				dayBars[t] = b
			}
		}
		trades := sim.RunDay(day, withBars, dayBars, tracker.Equity())
		tracker.Record(day, trades)
		res.Trades = append(res.Trades, trades...)
	}

	lc.advance(PhaseAggregating)
	e.finish(r, lc, &res, tracker)
	return res, nil
}

// finish runs the analyzer and fills the aggregate fields of res.
func (e *Engine) finish(r *run, lc *lifecycle, res *domain.BacktestResult, tracker *portfolio.Tracker) {
	res.EquityCurve = tracker.Curve()
	rep := analyzer.Analyze(r.req.Capital, res.StartDate, res.EndDate, res.Trades, res.EquityCurve, e.riskFree)
	res.Metrics = rep.Metrics
	res.DrawdownCurve = rep.DrawdownCurve
	res.MonthlyReturns = rep.MonthlyReturns
	if res.MonthlyReturns == nil {
		res.MonthlyReturns = []domain.MonthlyReturn{}
	}
	lc.advance(PhaseDone)
	lc.log.Info("strategy done",
		"source", string(res.DataSource),
		"trades", res.Metrics.TotalTrades,
		"return", res.Metrics.TotalReturn,
	)
}

// normalizeTickers upper-cases tickers and drops blanks and duplicates,
// keeping first-seen order.
func normalizeTickers(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// splitByDay buckets bars by exchange-local date, keeping only bars inside
// the session [open, close) given in minutes after midnight.
func splitByDay(bars []domain.Bar, open, close int) map[string][]domain.Bar {
	out := make(map[string][]domain.Bar)
	for _, b := range bars {
		m := util.ClockMinutes(b.Timestamp)
		if m < open || m >= close {
			continue
		}
		key := b.Timestamp.In(util.Exchange).Format("2006-01-02")
		out[key] = append(out[key], b)
	}
	return out
}
