package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradelab/internal/domain"
)

func sampleBars(symbol string) []domain.Bar {
	t0 := time.Date(2024, 1, 31, 20, 55, 0, 0, time.UTC)
	return []domain.Bar{
		{Symbol: symbol, Timestamp: t0, Open: 185.0, High: 186.5, Low: 184.0, Close: 185.5, Volume: 50000, TradeCount: 500, VWAP: 185.25},
		{Symbol: symbol, Timestamp: t0.Add(5 * time.Minute), Open: 185.5, High: 187.0, Low: 185.0, Close: 186.0, Volume: 45000, TradeCount: 450, VWAP: 185.75},
		{Symbol: symbol, Timestamp: t0.Add(24 * time.Hour), Open: 186.0, High: 186.2, Low: 185.1, Close: 185.9, Volume: 41000, TradeCount: 410, VWAP: 185.6},
	}
}

// exerciseStore runs the shared BarStore contract against s.
func exerciseStore(t *testing.T, s BarStore) {
	t.Helper()
	ctx := context.Background()

	bars := sampleBars("aapl")
	if err := s.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := s.ReadBars(ctx, "AAPL", DefaultMarket, start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadBars returned %d bars, want 3", len(got))
	}
	if got[0].Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", got[0].Symbol)
	}
	if !got[1].Timestamp.Equal(bars[1].Timestamp) || got[1].Close != 186.0 || got[1].Volume != 45000 {
		t.Errorf("second bar = %+v, want %+v", got[1], bars[1])
	}

	// Range is inclusive and filters by timestamp.
	got, err = s.ReadBars(ctx, "AAPL", DefaultMarket, bars[1].Timestamp, bars[1].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars narrow: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("narrow ReadBars returned %d bars, want 1", len(got))
	}

	// Rewriting a timestamp replaces the bar.
	upd := bars[0]
	upd.Close = 190
	if err := s.WriteBars(ctx, []domain.Bar{upd}); err != nil {
		t.Fatalf("WriteBars update: %v", err)
	}
	got, _ = s.ReadBars(ctx, "AAPL", DefaultMarket, start, end)
	if len(got) != 3 || got[0].Close != 190 {
		t.Errorf("after update: %d bars, first close %v; want 3 bars, close 190", len(got), got[0].Close)
	}

	if err := s.WriteBars(ctx, sampleBars("GOOGL")); err != nil {
		t.Fatalf("WriteBars GOOGL: %v", err)
	}
	symbols, err := s.ListSymbols(ctx, DefaultMarket)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}

	none, err := s.ReadBars(ctx, "MSFT", DefaultMarket, start, end)
	if err != nil {
		t.Fatalf("ReadBars missing symbol: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("missing symbol returned %d bars", len(none))
	}
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")
	ts := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	got := ps.barPath("aapl", "us", ts)
	want := filepath.Join("/data", "us", "bars", "AAPL", "2024-06.parquet")
	if got != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", got, want)
	}
}

func TestParquetStore(t *testing.T) {
	dir := t.TempDir()
	exerciseStore(t, NewParquetStore(dir))

	// Bars straddling a month boundary land in two files.
	for _, m := range []string{"2024-01", "2024-02"} {
		if _, err := os.Stat(filepath.Join(dir, "us", "bars", "AAPL", m+".parquet")); err != nil {
			t.Errorf("expected file for %s: %v", m, err)
		}
	}
}

func TestParquetStoreListSymbolsEmpty(t *testing.T) {
	symbols, err := NewParquetStore(t.TempDir()).ListSymbols(context.Background(), "us")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 0 {
		t.Errorf("ListSymbols = %v, want empty", symbols)
	}
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bars.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TRADELAB_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TRADELAB_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(ctx, `DELETE FROM bars WHERE symbol IN ('AAPL', 'GOOGL', 'MSFT')`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseStore(t, s)
}

func TestPGBarRoundTrip(t *testing.T) {
	b := domain.Bar{
		Symbol:    "msft",
		Timestamp: time.Date(2024, 3, 1, 15, 0, 0, 0, time.FixedZone("x", 3600)),
		Open:      400.12345, High: 401, Low: 399.5, Close: 400.5,
		Volume: 1000, TradeCount: 10, VWAP: 400.25,
	}
	got := toPGBar(b).bar()
	if got.Symbol != "MSFT" {
		t.Errorf("symbol = %q, want MSFT", got.Symbol)
	}
	if got.Open != 400.1235 {
		t.Errorf("open = %v, want 400.1235 (NUMERIC(18,4))", got.Open)
	}
	if got.Timestamp.Location() != time.UTC || !got.Timestamp.Equal(b.Timestamp) {
		t.Errorf("timestamp = %v, want %v in UTC", got.Timestamp, b.Timestamp)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Options{Backend: "none"})
	if err != nil || s != nil {
		t.Fatalf("Open(none) = %v, %v; want nil store", s, err)
	}
	closeFn()

	s, closeFn, err = Open(ctx, Options{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(sqlite) returned %T", s)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}

	if _, _, err := Open(ctx, Options{Backend: "redis"}); err == nil {
		t.Error("Open(redis) should fail")
	}
}
