package seq

import (
	"testing"
	"time"

	"tradelab/internal/domain"
)

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		x, y := a.Float64(), b.Float64()
		if x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d out of range: %v", i, x)
		}
	}
}

func TestKnownFirstDraw(t *testing.T) {
	g := New(0)
	if got, want := g.Uint64(), uint64(1442695040888963407); got != want {
		t.Errorf("first state from seed 0 = %d, want %d", got, want)
	}
}

func TestIntnAndRange(t *testing.T) {
	g := New(7)
	for i := 0; i < 500; i++ {
		if n := g.Intn(4); n < 0 || n >= 4 {
			t.Fatalf("Intn(4) = %d", n)
		}
		if r := g.Range(-2, 3); r < -2 || r >= 3 {
			t.Fatalf("Range(-2,3) = %v", r)
		}
	}
	if g.Intn(0) != 0 {
		t.Error("Intn(0) should be 0")
	}
}

func TestNormalishMoments(t *testing.T) {
	g := New(99)
	const n = 20000
	var sum, sq float64
	for i := 0; i < n; i++ {
		v := g.Normalish()
		if v < -3.5 || v > 3.5 {
			t.Fatalf("Normalish out of bounds: %v", v)
		}
		sum += v
		sq += v * v
	}
	mean := sum / n
	variance := sq/n - mean*mean
	if mean < -0.05 || mean > 0.05 {
		t.Errorf("mean = %v, want ~0", mean)
	}
	if variance < 0.9 || variance > 1.1 {
		t.Errorf("variance = %v, want ~1", variance)
	}
}

func TestDeriveIsolated(t *testing.T) {
	parent := New(5)
	c1 := parent.Derive("strategy", "AAPL")
	first := c1.Float64()

	// Consuming another stream must not shift this one.
	other := parent.Derive("strategy", "MSFT")
	for i := 0; i < 10; i++ {
		other.Float64()
	}
	parent.Float64()

	c2 := parent.Derive("strategy", "AAPL")
	if got := c2.Float64(); got != first {
		t.Errorf("re-derived stream = %v, want %v", got, first)
	}
	if parent.Derive("a", "b").Seed() == parent.Derive("ab").Seed() {
		t.Error("label boundaries should be part of the key")
	}
}

func TestSeedDependsOnInputs(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	strats := []domain.Strategy{{ID: "a", Type: domain.StrategyMomentum, Tickers: []string{"AAPL"}}}

	base := Seed(strats, start, end, 50000)
	if Seed(strats, start, end, 50000) != base {
		t.Fatal("Seed is not stable")
	}
	if Seed(strats, start, end, 50001) == base {
		t.Error("capital change did not change seed")
	}
	if Seed(strats, start, end.AddDate(0, 0, 1), 50000) == base {
		t.Error("end date change did not change seed")
	}
	more := []domain.Strategy{{ID: "a", Type: domain.StrategyMomentum, Tickers: []string{"AAPL", "MSFT"}}}
	if Seed(more, start, end, 50000) == base {
		t.Error("ticker change did not change seed")
	}
}
