package engine

import (
	"context"
	"errors"

	"tradelab/internal/domain"
	"tradelab/internal/marketdata"
	"tradelab/internal/synthetic"
)

type origin int

const (
	originMarket origin = iota
	originSynthetic
)

// tickerData is the memoized bar history for one ticker within a run.
type tickerData struct {
	bars   []domain.Bar
	origin origin
}

// barsFor resolves the bars for ticker over the whole run, fetching each
// ticker at most once per run. A missing source or a failed fetch falls
// back to synthetic bars; ErrNoData leaves the ticker without bars.
func (e *Engine) barsFor(ctx context.Context, r *run, ticker string) (tickerData, error) {
	if td, ok := r.memo[ticker]; ok {
		return td, nil
	}
	if len(r.days) == 0 {
		td := tickerData{origin: originMarket}
		r.memo[ticker] = td
		return td, nil
	}

	var td tickerData
	if e.source == nil {
		td = e.synthesize(r, ticker)
	} else {
		bars, err := e.source.FetchBars(ctx, ticker, r.days[0], r.days[len(r.days)-1])
		switch {
		case err == nil:
			td = tickerData{bars: marketdata.Sanitize(bars), origin: originMarket}
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return tickerData{}, err
		case errors.Is(err, marketdata.ErrNoData):
			r.log.Info("no market data for ticker", "ticker", ticker)
			td = tickerData{origin: originMarket}
		default:
			r.log.Warn("fetching bars failed, using synthetic bars", "ticker", ticker, "error", err)
			td = e.synthesize(r, ticker)
		}
	}
	r.memo[ticker] = td
	return td, nil
}

func (e *Engine) synthesize(r *run, ticker string) tickerData {
	bars := synthetic.Bars(r.gen.Derive("bars", ticker), ticker, r.days, r.req.Mode, e.barMinutes)
	return tickerData{bars: bars, origin: originSynthetic}
}
