package simulator

import (
	"math"
	"testing"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/util"
)

var testDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func makeBars(ticker string, closes []float64, vols []int64) []domain.Bar {
	start := util.SessionTime(testDay, 10, 0)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    ticker,
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      c, High: c + 0.05, Low: c - 0.05, Close: c,
			Volume: vols[i],
		}
	}
	return bars
}

func scalpPlan() Plan {
	return ResolvePlan(domain.Strategy{
		ID:   "s",
		Type: domain.StrategyMicroscalping,
		Parameters: domain.StrategyParameters{
			MaxPositions:       1,
			Sizing:             domain.Sizing{Kind: domain.SizingPercentEquity, Value: 10},
			MaxTradesPerDay:    5,
			MaxTradesPerSymbol: 5,
			StopLoss:           domain.Level{Kind: domain.LevelDollar, Value: 0.5},
			TakeProfit:         domain.Level{Kind: domain.LevelDollar, Value: 1.0},
			Entry:              domain.EntryConditions{MinBarIndex: 1},
			CommissionPerTrade: 1,
			SlippagePct:        0.1,
			TradingHours:       domain.TradingWindow{Start: "09:30", End: "16:00"},
		},
	})
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRunDayTakeProfitCosts(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 101.6, 101.6, 101.6},
		[]int64{1000, 1000, 2000, 1000, 1000, 1000})
	sim := New(scalpPlan())

	trades := sim.RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1: %+v", len(trades), trades)
	}
	tr := trades[0]

	checks := []struct {
		name      string
		got, want float64
	}{
		{"entry", tr.EntryPrice, 100.51},
		{"exit", tr.ExitPrice, 101.59},
		{"gross", tr.GrossPnL, 9.72},
		{"fees", tr.Fees, 2},
		{"slippage", tr.Slippage, 1.82},
		{"net", tr.PnL, 5.90},
		{"pct", tr.PnLPercent, 0.6522},
		{"hold", tr.HoldMinutes, 5},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if tr.Quantity != 9 {
		t.Errorf("quantity = %d, want 9", tr.Quantity)
	}
	if tr.ExitReason != domain.ExitTakeProfit {
		t.Errorf("exit reason = %q, want %q", tr.ExitReason, domain.ExitTakeProfit)
	}
}

func TestRunDayStopLoss(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 99.9, 99.9},
		[]int64{1000, 1000, 2000, 1000, 1000})
	trades := New(scalpPlan()).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 1 || trades[0].ExitReason != domain.ExitStopLoss {
		t.Fatalf("trades = %+v, want one stop_loss", trades)
	}
	if trades[0].PnL >= 0 {
		t.Errorf("stop-loss trade PnL = %v, want negative", trades[0].PnL)
	}
}

func TestRunDayForcesCloseAtLastBar(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 100.6, 100.7},
		[]int64{1000, 1000, 2000, 1000, 1000})
	trades := New(scalpPlan()).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	last := bars[len(bars)-1].Timestamp
	if trades[0].ExitReason != domain.ExitTime {
		t.Errorf("exit reason = %q, want time_exit", trades[0].ExitReason)
	}
	if !trades[0].ExitTime.Equal(last) {
		t.Errorf("exit time = %v, want last bar %v", trades[0].ExitTime, last)
	}
}

func TestRunDayNoEntryOnLastBar(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5},
		[]int64{1000, 1000, 2000})
	trades := New(scalpPlan()).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
}

func TestRunDayMaxPositions(t *testing.T) {
	closes := []float64{100, 100, 100.5, 100.6, 100.7}
	vols := []int64{1000, 1000, 2000, 1000, 1000}
	byTicker := map[string][]domain.Bar{
		"AAA": makeBars("AAA", closes, vols),
		"BBB": makeBars("BBB", closes, vols),
	}
	trades := New(scalpPlan()).RunDay(testDay, []string{"BBB", "AAA"}, byTicker, 10000)
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if trades[0].Ticker != "BBB" {
		t.Errorf("ticker = %q, want BBB (first in ticker order)", trades[0].Ticker)
	}

	plan := scalpPlan()
	plan.MaxPositions = 2
	trades = New(plan).RunDay(testDay, []string{"BBB", "AAA"}, byTicker, 10000)
	if len(trades) != 2 {
		t.Fatalf("with MaxPositions 2 got %d trades, want 2", len(trades))
	}
}

func TestRunDayMaxTradesPerSymbol(t *testing.T) {
	// Two separate spikes, each followed by a target hit.
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 101.6, 101.6, 102.0, 103.1, 103.1},
		[]int64{1000, 1000, 2000, 1000, 1000, 2000, 1000, 1000})
	plan := scalpPlan()
	trades := New(plan).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}

	plan.MaxTradesPerSymbol = 1
	trades = New(plan).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 1 {
		t.Fatalf("with MaxTradesPerSymbol 1 got %d trades, want 1", len(trades))
	}
}

func TestRunDayTradingWindow(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 101.6, 101.6},
		[]int64{1000, 1000, 2000, 1000, 1000})
	plan := scalpPlan()
	plan.WindowStart = 11 * 60
	trades := New(plan).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 0 {
		t.Fatalf("got %d trades outside window, want 0", len(trades))
	}
}

func TestRunDayFixedRiskSizing(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 101.6, 101.6},
		[]int64{1000, 1000, 2000, 1000, 1000})
	plan := scalpPlan()
	plan.Sizing = domain.Sizing{Kind: domain.SizingFixedRisk, Value: 10}
	trades := New(plan).RunDay(testDay, []string{"AAA"}, map[string][]domain.Bar{"AAA": bars}, 10000)
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	// $10 risk over a $0.50 stop.
	if trades[0].Quantity != 20 {
		t.Errorf("quantity = %d, want 20", trades[0].Quantity)
	}
}

func TestRunDayDeterministic(t *testing.T) {
	bars := makeBars("AAA",
		[]float64{100, 100, 100.5, 101.6, 101.6, 102.0, 103.1, 103.1},
		[]int64{1000, 1000, 2000, 1000, 1000, 2000, 1000, 1000})
	in := map[string][]domain.Bar{"AAA": bars}
	a := New(scalpPlan()).RunDay(testDay, []string{"AAA"}, in, 10000)
	b := New(scalpPlan()).RunDay(testDay, []string{"AAA"}, in, 10000)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("trade %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestResolvePlanDefaults(t *testing.T) {
	plan := ResolvePlan(domain.Strategy{Type: domain.StrategyBreakout})
	if plan.StopLoss.Kind != domain.LevelATR || plan.TakeProfit.Kind != domain.LevelATR {
		t.Errorf("breakout levels = %v/%v, want atr", plan.StopLoss.Kind, plan.TakeProfit.Kind)
	}
	if plan.Sizing.Kind != domain.SizingPercentEquity || plan.Sizing.Value != 10 {
		t.Errorf("sizing = %+v, want percent_equity 10", plan.Sizing)
	}
	if plan.MaxPositions != 3 || plan.Entry.MinBarIndex != 20 {
		t.Errorf("defaults not filled: %+v", plan)
	}
	if plan.WindowStart != 570 || plan.WindowEnd != 960 {
		t.Errorf("window = %d-%d, want 570-960", plan.WindowStart, plan.WindowEnd)
	}
}

func TestResolvePlanKinds(t *testing.T) {
	tests := []struct {
		name string
		st   domain.StrategyType
		in   domain.Level
		want domain.Level
	}{
		{"family default", domain.StrategyMicroscalping, domain.Level{}, domain.Level{Kind: domain.LevelDollar, Value: 0.10}},
		{"explicit kind kept", domain.StrategyMomentum, domain.Level{Kind: domain.LevelATR, Value: 2}, domain.Level{Kind: domain.LevelATR, Value: 2}},
		{"value takes family kind", domain.StrategyMeanReversion, domain.Level{Value: 1}, domain.Level{Kind: domain.LevelPercent, Value: 1}},
		{"zero value falls back", domain.StrategyNewsScalping, domain.Level{Kind: domain.LevelPercent}, domain.Level{Kind: domain.LevelDollar, Value: 0.25}},
		{"unknown kind falls back", domain.StrategyGapAndGo, domain.Level{Kind: "ticks", Value: 4}, domain.Level{Kind: domain.LevelPercent, Value: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := ResolvePlan(domain.Strategy{Type: tt.st, Parameters: domain.StrategyParameters{StopLoss: tt.in}})
			if plan.StopLoss != tt.want {
				t.Errorf("StopLoss = %+v, want %+v", plan.StopLoss, tt.want)
			}
		})
	}
}

func TestResolvePlanBadWindow(t *testing.T) {
	plan := ResolvePlan(domain.Strategy{
		Type:       domain.StrategyMomentum,
		Parameters: domain.StrategyParameters{TradingHours: domain.TradingWindow{Start: "15:00", End: "10:00"}},
	})
	if plan.WindowStart != 570 || plan.WindowEnd != 960 {
		t.Errorf("window = %d-%d, want default 570-960", plan.WindowStart, plan.WindowEnd)
	}
}
