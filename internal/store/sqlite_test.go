package store

import (
	"context"
	"path/filepath"
	"testing"

	"okx-trader/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParametersRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cfg := models.InstrumentConfig{
		Ticker:       "BTC-USDT-SWAP",
		Timeframe:    "15m",
		ADXThreshold: 25,
		RSIThreshold: 70,
		EMAFast:      12,
		EMASlow:      26,
		Margin:       100,
		Leverage:     3,
		TakeProfit:   0.02,
		StopLoss:     0.01,
	}
	if err := s.UpsertParameter(ctx, cfg); err != nil {
		t.Fatalf("UpsertParameter: %v", err)
	}

	got, err := s.ReadParameters(ctx)
	if err != nil {
		t.Fatalf("ReadParameters: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("parameters = %d, want 1", len(got))
	}
	if got[0] != cfg {
		t.Errorf("got %+v, want %+v", got[0], cfg)
	}

	// Upserting the same ticker replaces, not duplicates.
	cfg.Margin = 250
	if err := s.UpsertParameter(ctx, cfg); err != nil {
		t.Fatalf("UpsertParameter update: %v", err)
	}
	got, err = s.ReadParameters(ctx)
	if err != nil {
		t.Fatalf("ReadParameters: %v", err)
	}
	if len(got) != 1 || got[0].Margin != 250 {
		t.Errorf("got %+v, want single row with margin 250", got)
	}
}

func TestReadParametersOrderedByTicker(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, ticker := range []string{"ZRX-USDT-SWAP", "BTC-USDT-SWAP", "ETH-USDT-SWAP"} {
		cfg := models.InstrumentConfig{Ticker: ticker, Timeframe: "15m"}
		if err := s.UpsertParameter(ctx, cfg); err != nil {
			t.Fatalf("UpsertParameter %s: %v", ticker, err)
		}
	}

	got, err := s.ReadParameters(ctx)
	if err != nil {
		t.Fatalf("ReadParameters: %v", err)
	}
	want := []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP", "ZRX-USDT-SWAP"}
	for i, cfg := range got {
		if cfg.Ticker != want[i] {
			t.Errorf("position %d = %s, want %s", i, cfg.Ticker, want[i])
		}
	}
}

func TestPositionsLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pos := models.OpenPosition{
		Ticker:     "ETH-USDT-SWAP",
		Side:       models.SideShort,
		AvgPrice:   2000,
		Contracts:  3,
		StopLoss:   2020,
		TakeProfit: 1960,
		Leverage:   2,
		Margin:     100,
		Notional:   200,
		Fee:        -0.15,
		OpenedAt:   "2024-03-01 12:00:00",
	}
	if err := s.AddPosition(ctx, pos); err != nil {
		t.Fatalf("AddPosition: %v", err)
	}

	got, err := s.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(got) != 1 || got[0] != pos {
		t.Fatalf("got %+v, want %+v", got, pos)
	}

	if err := s.DeletePosition(ctx, pos.Ticker); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	got, err = s.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("positions = %+v, want empty after delete", got)
	}

	// Deleting an absent record is tolerated: drift healing may race a
	// manual cleanup.
	if err := s.DeletePosition(ctx, "GONE-USDT-SWAP"); err != nil {
		t.Errorf("DeletePosition on missing row: %v", err)
	}
}

func TestAddOperationAppends(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	open := models.ExecutionRecord{
		Ticker:        "BTC-USDT-SWAP",
		Kind:          models.OperationOpen,
		Side:          models.SideLong,
		ExecutionTime: "2024-03-01 12:00:00",
		AvgPrice:      50000,
		Contracts:     4,
		Fee:           -0.1,
		Margin:        100,
		Notional:      200,
		Leverage:      2,
		Reason:        string(models.OpenReasonTrend),
	}
	closed := open
	closed.Kind = models.OperationClose
	closed.PnL = 48
	closed.Reason = string(models.CloseReasonTakeProfit)

	if err := s.AddOperation(ctx, open); err != nil {
		t.Fatalf("AddOperation open: %v", err)
	}
	if err := s.AddOperation(ctx, closed); err != nil {
		t.Fatalf("AddOperation close: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM operations WHERE ticker = ?`, open.Ticker).Scan(&count); err != nil {
		t.Fatalf("counting operations: %v", err)
	}
	if count != 2 {
		t.Errorf("operations = %d, want 2", count)
	}

	var kind, reason string
	var pnl float64
	err := s.db.QueryRow(`SELECT kind, reason, pnl FROM operations ORDER BY id DESC LIMIT 1`).Scan(&kind, &reason, &pnl)
	if err != nil {
		t.Fatalf("reading last operation: %v", err)
	}
	if kind != string(models.OperationClose) || reason != string(models.CloseReasonTakeProfit) || pnl != 48 {
		t.Errorf("last operation = %s/%s/%v, want close/take_profit/48", kind, reason, pnl)
	}
}
