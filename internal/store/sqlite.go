package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tradelab/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ BarStore = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	market      TEXT    NOT NULL,
	symbol      TEXT    NOT NULL,
	ts          INTEGER NOT NULL,
	open        REAL    NOT NULL,
	high        REAL    NOT NULL,
	low         REAL    NOT NULL,
	close       REAL    NOT NULL,
	volume      INTEGER NOT NULL,
	trade_count INTEGER NOT NULL DEFAULT 0,
	vwap        REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (market, symbol, ts)
)`

// SQLiteStore implements BarStore backed by a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	market string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// bars table if needed, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite permits one writer; serialise through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db, market: DefaultMarket}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteBars upserts bars in a single transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bars
		(market, symbol, ts, open, high, low, close, volume, trade_count, vwap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, s.market, strings.ToUpper(b.Symbol), b.Timestamp.UnixMilli(),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.TradeCount, b.VWAP); err != nil {
			return fmt.Errorf("insert %s@%s: %w", b.Symbol, b.Timestamp.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for symbol in [start, end] ordered by timestamp.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, ts, open, high, low, close, volume, trade_count, vwap
		FROM bars WHERE market = ? AND symbol = ? AND ts BETWEEN ? AND ?
		ORDER BY ts`,
		market, strings.ToUpper(symbol), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var (
			b  domain.Bar
			ts int64
		)
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.TradeCount, &b.VWAP); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns the distinct symbols stored for market.
func (s *SQLiteStore) ListSymbols(ctx context.Context, market string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars WHERE market = ? ORDER BY symbol`, market)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
