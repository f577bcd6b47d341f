package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"okx-trader/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed ledger store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Per-instrument strategy parameters
	CREATE TABLE IF NOT EXISTS parameters (
		ticker TEXT PRIMARY KEY,
		timeframe TEXT NOT NULL,
		adx_threshold REAL NOT NULL,
		rsi_threshold REAL NOT NULL,
		ema_fast INTEGER NOT NULL,
		ema_slow INTEGER NOT NULL,
		margin REAL NOT NULL,
		leverage REAL NOT NULL,
		take_profit REAL NOT NULL,
		stop_loss REAL NOT NULL
	);

	-- Open position records (SL/TP source of truth)
	CREATE TABLE IF NOT EXISTS positions (
		ticker TEXT PRIMARY KEY,
		side TEXT NOT NULL,
		avg_price REAL NOT NULL,
		contracts REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		leverage REAL NOT NULL,
		margin REAL NOT NULL,
		notional REAL NOT NULL,
		fee REAL NOT NULL,
		opened_at TEXT NOT NULL
	);

	-- Operations journal, append only
	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		kind TEXT NOT NULL,
		side TEXT NOT NULL,
		execution_time TEXT NOT NULL,
		avg_price REAL NOT NULL,
		contracts REAL NOT NULL,
		fee REAL NOT NULL,
		pnl REAL,
		margin REAL NOT NULL,
		notional REAL NOT NULL,
		leverage REAL NOT NULL,
		reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_operations_ticker ON operations(ticker);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReadParameters returns all configured instruments. Contract metadata
// fields are zero; the caller merges exchange metadata before use.
func (s *SQLiteStore) ReadParameters(ctx context.Context) ([]models.InstrumentConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, timeframe, adx_threshold, rsi_threshold, ema_fast, ema_slow,
		       margin, leverage, take_profit, stop_loss
		FROM parameters ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("reading parameters: %w", err)
	}
	defer rows.Close()

	var configs []models.InstrumentConfig
	for rows.Next() {
		var cfg models.InstrumentConfig
		if err := rows.Scan(&cfg.Ticker, &cfg.Timeframe, &cfg.ADXThreshold, &cfg.RSIThreshold,
			&cfg.EMAFast, &cfg.EMASlow, &cfg.Margin, &cfg.Leverage, &cfg.TakeProfit, &cfg.StopLoss); err != nil {
			return nil, fmt.Errorf("scanning parameter row: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// UpsertParameter inserts or replaces one instrument's parameters.
func (s *SQLiteStore) UpsertParameter(ctx context.Context, cfg models.InstrumentConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parameters
			(ticker, timeframe, adx_threshold, rsi_threshold, ema_fast, ema_slow,
			 margin, leverage, take_profit, stop_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			timeframe = excluded.timeframe,
			adx_threshold = excluded.adx_threshold,
			rsi_threshold = excluded.rsi_threshold,
			ema_fast = excluded.ema_fast,
			ema_slow = excluded.ema_slow,
			margin = excluded.margin,
			leverage = excluded.leverage,
			take_profit = excluded.take_profit,
			stop_loss = excluded.stop_loss`,
		cfg.Ticker, cfg.Timeframe, cfg.ADXThreshold, cfg.RSIThreshold, cfg.EMAFast, cfg.EMASlow,
		cfg.Margin, cfg.Leverage, cfg.TakeProfit, cfg.StopLoss)
	if err != nil {
		return fmt.Errorf("upserting parameters for %s: %w", cfg.Ticker, err)
	}
	return nil
}

// ListPositions returns all recorded open positions ordered by ticker.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]models.OpenPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, side, avg_price, contracts, stop_loss, take_profit,
		       leverage, margin, notional, fee, opened_at
		FROM positions ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	defer rows.Close()

	var positions []models.OpenPosition
	for rows.Next() {
		var pos models.OpenPosition
		if err := rows.Scan(&pos.Ticker, &pos.Side, &pos.AvgPrice, &pos.Contracts,
			&pos.StopLoss, &pos.TakeProfit, &pos.Leverage, &pos.Margin,
			&pos.Notional, &pos.Fee, &pos.OpenedAt); err != nil {
			return nil, fmt.Errorf("scanning position row: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// AddPosition records a freshly opened position.
func (s *SQLiteStore) AddPosition(ctx context.Context, pos models.OpenPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions
			(ticker, side, avg_price, contracts, stop_loss, take_profit,
			 leverage, margin, notional, fee, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.Ticker, pos.Side, pos.AvgPrice, pos.Contracts, pos.StopLoss, pos.TakeProfit,
		pos.Leverage, pos.Margin, pos.Notional, pos.Fee, pos.OpenedAt)
	if err != nil {
		return fmt.Errorf("adding position %s: %w", pos.Ticker, err)
	}
	return nil
}

// DeletePosition removes a position record by ticker. Deleting a
// missing record is not an error: drift healing may race a manual fix.
func (s *SQLiteStore) DeletePosition(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE ticker = ?`, ticker)
	if err != nil {
		return fmt.Errorf("deleting position %s: %w", ticker, err)
	}
	return nil
}

// AddOperation appends one row to the operations journal.
func (s *SQLiteStore) AddOperation(ctx context.Context, rec models.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations
			(ticker, kind, side, execution_time, avg_price, contracts, fee, pnl,
			 margin, notional, leverage, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Ticker, rec.Kind, rec.Side, rec.ExecutionTime, rec.AvgPrice, rec.Contracts,
		rec.Fee, rec.PnL, rec.Margin, rec.Notional, rec.Leverage, rec.Reason)
	if err != nil {
		return fmt.Errorf("adding operation for %s: %w", rec.Ticker, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
