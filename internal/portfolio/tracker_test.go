package portfolio

import (
	"testing"
	"time"

	"tradelab/internal/domain"
)

func TestTrackerRecord(t *testing.T) {
	tr := NewTracker(10000)
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	d3 := d2.AddDate(0, 0, 1)

	tr.Record(d1, []domain.Trade{{PnL: 150.25}, {PnL: -50.25}})
	tr.Record(d2, nil)
	pt := tr.Record(d3, []domain.Trade{{PnL: -200}})

	curve := tr.Curve()
	if len(curve) != 3 {
		t.Fatalf("curve has %d points, want 3", len(curve))
	}
	want := []float64{10100, 10100, 9900}
	for i, w := range want {
		if curve[i].Equity != w {
			t.Errorf("point %d equity = %v, want %v", i, curve[i].Equity, w)
		}
	}
	if curve[0].CumulativeReturn != 1 {
		t.Errorf("cumulative return = %v, want 1", curve[0].CumulativeReturn)
	}
	if pt.CumulativeReturn != -1 {
		t.Errorf("last cumulative return = %v, want -1", pt.CumulativeReturn)
	}
	if tr.Equity() != 9900 {
		t.Errorf("Equity() = %v, want 9900", tr.Equity())
	}
}

func TestTrackerCurveIsCopy(t *testing.T) {
	tr := NewTracker(5000)
	tr.Record(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil)
	c := tr.Curve()
	c[0].Equity = 0
	if tr.Curve()[0].Equity != 5000 {
		t.Error("mutating Curve() result changed tracker state")
	}
}
