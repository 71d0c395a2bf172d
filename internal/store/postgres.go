package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tradelab/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bars (
	market      TEXT          NOT NULL,
	symbol      TEXT          NOT NULL,
	ts          TIMESTAMPTZ   NOT NULL,
	open        NUMERIC(18,4) NOT NULL,
	high        NUMERIC(18,4) NOT NULL,
	low         NUMERIC(18,4) NOT NULL,
	close       NUMERIC(18,4) NOT NULL,
	volume      BIGINT        NOT NULL,
	trade_count BIGINT        NOT NULL DEFAULT 0,
	vwap        NUMERIC(18,4) NOT NULL DEFAULT 0,
	PRIMARY KEY (market, symbol, ts)
)`

const upsertBar = `INSERT INTO bars
	(market, symbol, ts, open, high, low, close, volume, trade_count, vwap)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (market, symbol, ts) DO UPDATE SET
	open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
	close = EXCLUDED.close, volume = EXCLUDED.volume,
	trade_count = EXCLUDED.trade_count, vwap = EXCLUDED.vwap`

// PostgresStore implements BarStore on PostgreSQL. Prices are stored as
// NUMERIC and moved through shopspring decimals.
type PostgresStore struct {
	pool   *pgxpool.Pool
	market string
}

// NewPostgresStore connects to dbURL, verifies connectivity, and creates the
// bars table if needed.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool, market: DefaultMarket}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// pgBar is the row shape of the bars table.
type pgBar struct {
	Symbol     string
	TS         time.Time
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     int64
	TradeCount int64
	VWAP       decimal.Decimal
}

func toPGBar(b domain.Bar) pgBar {
	return pgBar{
		Symbol:     strings.ToUpper(b.Symbol),
		TS:         b.Timestamp.UTC(),
		Open:       decimal.NewFromFloat(b.Open).Round(4),
		High:       decimal.NewFromFloat(b.High).Round(4),
		Low:        decimal.NewFromFloat(b.Low).Round(4),
		Close:      decimal.NewFromFloat(b.Close).Round(4),
		Volume:     b.Volume,
		TradeCount: b.TradeCount,
		VWAP:       decimal.NewFromFloat(b.VWAP).Round(4),
	}
}

func (r pgBar) bar() domain.Bar {
	return domain.Bar{
		Symbol:     r.Symbol,
		Timestamp:  r.TS.UTC(),
		Open:       r.Open.InexactFloat64(),
		High:       r.High.InexactFloat64(),
		Low:        r.Low.InexactFloat64(),
		Close:      r.Close.InexactFloat64(),
		Volume:     r.Volume,
		TradeCount: r.TradeCount,
		VWAP:       r.VWAP.InexactFloat64(),
	}
}

// WriteBars upserts bars in one batch.
func (s *PostgresStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range bars {
		r := toPGBar(b)
		batch.Queue(upsertBar, s.market, r.Symbol, r.TS, r.Open, r.High, r.Low, r.Close, r.Volume, r.TradeCount, r.VWAP)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert bars: %w", err)
	}
	return nil
}

// ReadBars returns bars for symbol in [start, end] ordered by timestamp.
func (s *PostgresStore) ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.pool.Query(ctx, `SELECT symbol, ts, open, high, low, close, volume, trade_count, vwap
		FROM bars WHERE market = $1 AND symbol = $2 AND ts BETWEEN $3 AND $4
		ORDER BY ts`, market, strings.ToUpper(symbol), start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[pgBar])
	if err != nil {
		return nil, fmt.Errorf("scan bars: %w", err)
	}

	bars := make([]domain.Bar, 0, len(recs))
	for _, r := range recs {
		bars = append(bars, r.bar())
	}
	return bars, nil
}

// ListSymbols returns the distinct symbols stored for market.
func (s *PostgresStore) ListSymbols(ctx context.Context, market string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT symbol FROM bars WHERE market = $1 ORDER BY symbol`, market)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
