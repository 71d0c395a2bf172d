// Package store persists fetched market bars so repeated backtests over the
// same range do not hit the upstream provider again.
package store

import (
	"context"
	"fmt"
	"time"

	"tradelab/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage, replacing any bar with
	// the same symbol and timestamp.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// DefaultMarket is the market bars are filed under when none is given.
const DefaultMarket = "us"

// Options selects and configures a BarStore backend.
type Options struct {
	Backend     string // parquet, sqlite, postgres or none
	DataDir     string
	SQLitePath  string
	PostgresURL string
}

// Open returns the configured BarStore and a function that releases it. It
// returns a nil store for the "none" backend.
func Open(ctx context.Context, opts Options) (BarStore, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", "none":
		return nil, noop, nil
	case "parquet":
		return NewParquetStore(opts.DataDir), noop, nil
	case "sqlite":
		s, err := NewSQLiteStore(opts.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s.Close, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, opts.PostgresURL)
		if err != nil {
			return nil, noop, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
