package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/store"
	"tradelab/internal/util"
)

// Compile-time interface check.
var _ BarSource = (*CachingSource)(nil)

// CachingSource serves bars from a BarStore when it already holds the
// requested range and otherwise fetches from the inner source and writes
// the result back. Store failures are logged and never fail a fetch.
type CachingSource struct {
	inner  BarSource
	store  store.BarStore
	market string
	log    *slog.Logger
}

// NewCachingSource wraps inner with the given store. inner may be nil, in
// which case only cached bars are served.
func NewCachingSource(inner BarSource, s store.BarStore) *CachingSource {
	return &CachingSource{
		inner:  inner,
		store:  s,
		market: store.DefaultMarket,
		log:    slog.Default().With("source", "cache"),
	}
}

// FetchBars returns cached bars when they cover the first and last trading
// days of the range, else fetches.
func (s *CachingSource) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	start, end := rangeBounds(from, to)
	// ReadBars is inclusive on both ends.
	end = end.Add(-time.Millisecond)

	cached, err := s.store.ReadBars(ctx, ticker, s.market, start, end)
	if err != nil {
		s.log.Warn("cache read failed", "ticker", ticker, "error", err)
	} else if covers(cached, from, to) {
		s.log.Debug("cache hit", "ticker", ticker, "count", len(cached))
		return cached, nil
	}

	if s.inner == nil {
		return nil, fmt.Errorf("fetching %s: %w", ticker, ErrNoUpstream)
	}
	bars, err := s.inner.FetchBars(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetching %s: %w", ticker, ErrNoData)
	}

	if err := s.store.WriteBars(ctx, bars); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.log.Warn("cache write failed", "ticker", ticker, "error", err)
	}
	return bars, nil
}

// covers reports whether bars include the first and last trading days in
// [from, to]. Gaps inside the range are not detected.
func covers(bars []domain.Bar, from, to time.Time) bool {
	days := util.TradingDays(from, to)
	if len(bars) == 0 || len(days) == 0 {
		return false
	}
	first := util.Date(bars[0].Timestamp.In(util.Exchange))
	last := util.Date(bars[len(bars)-1].Timestamp.In(util.Exchange))
	return first.Equal(days[0]) && last.Equal(days[len(days)-1])
}
