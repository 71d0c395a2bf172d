// Package marketdata supplies intraday bars to the backtesting engine. A
// BarSource is the injected capability; decorators add rate limiting,
// retries and a persistent cache around it.
package marketdata

import (
	"context"
	"errors"
	"sort"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/util"
)

// ErrRateLimited marks an upstream rate-limit rejection. It is the only
// error RetryingSource retries.
var ErrRateLimited = errors.New("marketdata: rate limited")

// ErrNoData is returned when a source has nothing for the requested range.
var ErrNoData = errors.New("marketdata: no data")

// BarSource returns time-ordered bars for ticker between the calendar dates
// from and to, inclusive.
type BarSource interface {
	FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error)
}

// SourceFunc adapts a function to BarSource.
type SourceFunc func(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error)

// FetchBars calls f.
func (f SourceFunc) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	return f(ctx, ticker, from, to)
}

// Sanitize sorts bars by timestamp and drops duplicate timestamps, keeping
// the first occurrence. The input slice is not modified.
func Sanitize(bars []domain.Bar) []domain.Bar {
	if len(bars) == 0 {
		return nil
	}
	out := make([]domain.Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.Equal(out[n-1].Timestamp) {
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// rangeBounds converts inclusive calendar dates to a half-open range of
// exchange-local instants.
func rangeBounds(from, to time.Time) (time.Time, time.Time) {
	return util.SessionTime(from, 0, 0), util.SessionTime(to, 0, 0).AddDate(0, 0, 1)
}
