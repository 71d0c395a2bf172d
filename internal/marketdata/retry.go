package marketdata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/util"
)

// Compile-time interface check.
var _ BarSource = (*RetryingSource)(nil)

// RetryingSource spaces requests to its inner source by a fixed interval
// and retries rate-limited requests with exponential backoff. Other errors
// are returned on the first attempt.
type RetryingSource struct {
	inner       BarSource
	limiter     *util.RateLimiter
	maxAttempts int
	baseDelay   time.Duration
	log         *slog.Logger
}

// NewRetryingSource wraps inner. retries is the number of extra attempts
// after the first; baseDelay doubles after each one. interval is the
// minimum spacing between requests.
func NewRetryingSource(inner BarSource, interval time.Duration, retries int, baseDelay time.Duration) *RetryingSource {
	if retries < 0 {
		retries = 0
	}
	return &RetryingSource{
		inner:       inner,
		limiter:     util.NewIntervalLimiter(interval),
		maxAttempts: retries + 1,
		baseDelay:   baseDelay,
		log:         slog.Default().With("source", "retry"),
	}
}

// FetchBars fetches through the inner source.
func (s *RetryingSource) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	var (
		bars    []domain.Bar
		attempt int
	)
	err := util.RetryIf(ctx, s.maxAttempts, s.baseDelay,
		func(err error) bool { return errors.Is(err, ErrRateLimited) },
		func() error {
			attempt++
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			bars, err = s.inner.FetchBars(ctx, ticker, from, to)
			if errors.Is(err, ErrRateLimited) {
				s.log.Warn("rate limited", "ticker", ticker, "attempt", attempt, "max", s.maxAttempts)
			}
			return err
		})
	if err != nil {
		return nil, err
	}
	return bars, nil
}
