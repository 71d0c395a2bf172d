package marketdata

import (
	"errors"
	"time"

	"tradelab/internal/store"
)

// ErrNoUpstream is returned by a cache miss when no upstream source is
// configured.
var ErrNoUpstream = errors.New("marketdata: no upstream source")

// ChainOptions configures NewChain.
type ChainOptions struct {
	Alpaca         AlpacaOptions
	RequestDelay   time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// NewChain assembles the production source: Alpaca behind rate limiting and
// retries, behind the store cache when st is non-nil. Without Alpaca
// credentials the cache is served alone and misses report ErrNoUpstream.
// It returns nil when there is neither credentials nor a store, which sends
// every ticker to the synthetic fallback.
func NewChain(opts ChainOptions, st store.BarStore) BarSource {
	var src BarSource
	if opts.Alpaca.APIKey != "" && opts.Alpaca.APISecret != "" {
		src = NewRetryingSource(NewAlpacaSource(opts.Alpaca), opts.RequestDelay, opts.MaxRetries, opts.RetryBaseDelay)
	}
	if st != nil {
		return NewCachingSource(src, st)
	}
	return src
}
