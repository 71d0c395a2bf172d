package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradelab/internal/domain"
)

// Compile-time interface check.
var _ BarSource = (*AlpacaSource)(nil)

// barClient is the subset of the Alpaca market-data client AlpacaSource uses.
type barClient interface {
	GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error)
}

// AlpacaSource fetches intraday bars from the Alpaca market-data API.
type AlpacaSource struct {
	client     barClient
	barMinutes int
	feed       string
	log        *slog.Logger
}

// AlpacaOptions configures NewAlpacaSource.
type AlpacaOptions struct {
	APIKey     string
	APISecret  string
	DataURL    string
	Feed       string // "iex" or "sip"; defaults to "iex"
	BarMinutes int    // defaults to 5
}

// NewAlpacaSource creates an AlpacaSource using the given credentials.
func NewAlpacaSource(opts AlpacaOptions) *AlpacaSource {
	co := alpacamd.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		co.BaseURL = opts.DataURL
	}
	return newAlpacaSource(alpacamd.NewClient(co), opts.Feed, opts.BarMinutes)
}

func newAlpacaSource(c barClient, feed string, barMinutes int) *AlpacaSource {
	if feed == "" {
		feed = "iex"
	}
	if barMinutes <= 0 {
		barMinutes = 5
	}
	return &AlpacaSource{
		client:     c,
		barMinutes: barMinutes,
		feed:       feed,
		log:        slog.Default().With("source", "alpaca"),
	}
}

// FetchBars returns bars for ticker over the inclusive date range. A 429
// response is reported as ErrRateLimited and an empty response as ErrNoData.
func (s *AlpacaSource) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, end := rangeBounds(from, to)
	symbol := strings.ToUpper(ticker)

	abars, err := s.client.GetBars(symbol, alpacamd.GetBarsRequest{
		TimeFrame: alpacamd.NewTimeFrame(s.barMinutes, alpacamd.Min),
		Start:     start,
		End:       end,
		Feed:      alpacamd.Feed(s.feed),
	})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("GetBars %s: %w: %v", symbol, ErrRateLimited, err)
		}
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(abars) == 0 {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, ErrNoData)
	}

	bars := make([]domain.Bar, 0, len(abars))
	for _, ab := range abars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	s.log.Debug("fetched bars", "ticker", symbol, "count", len(bars))
	return bars, nil
}
