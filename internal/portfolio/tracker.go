// Package portfolio folds daily trade P&L into an equity curve.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"tradelab/internal/domain"
)

// Tracker accumulates one equity point per recorded trading day. Equity is
// carried in decimal so long runs do not drift.
type Tracker struct {
	capital decimal.Decimal
	equity  decimal.Decimal
	curve   []domain.EquityPoint
}

// NewTracker starts a tracker at capital.
func NewTracker(capital float64) *Tracker {
	c := decimal.NewFromFloat(capital)
	return &Tracker{capital: c, equity: c}
}

// Record adds the net P&L of trades to equity and appends the day's point.
// A day with no trades still produces a point at unchanged equity.
func (t *Tracker) Record(day time.Time, trades []domain.Trade) domain.EquityPoint {
	for _, tr := range trades {
		t.equity = t.equity.Add(decimal.NewFromFloat(tr.PnL))
	}

	var cum float64
	if t.capital.IsPositive() {
		cum = t.equity.Sub(t.capital).Div(t.capital).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}
	pt := domain.EquityPoint{
		Date:             day,
		Equity:           t.equity.Round(2).InexactFloat64(),
		CumulativeReturn: cum,
	}
	t.curve = append(t.curve, pt)
	return pt
}

// Equity returns the current equity.
func (t *Tracker) Equity() float64 {
	return t.equity.Round(2).InexactFloat64()
}

// Curve returns a copy of the recorded equity points.
func (t *Tracker) Curve() []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(t.curve))
	copy(out, t.curve)
	return out
}
