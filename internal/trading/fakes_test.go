package trading

import (
	"context"
	"fmt"

	"okx-trader/internal/exchange"
	"okx-trader/internal/models"
)

// fakeExchange is a scripted exchange client. Acks and order statuses
// are consumed in order; call counts and requests are recorded for
// assertions.
type fakeExchange struct {
	balance   float64
	positions []models.Position
	meta      map[string]models.InstrumentMeta
	candles   map[string][]models.Candle

	acks     []exchange.OrderAck
	statuses []models.OrderStatus

	submitErr error
	statusErr error

	submits       []exchange.MarketOrderRequest
	closes        []string
	statusCalls   int
	leverageCalls int
}

func (f *fakeExchange) GetAvailableBalance(ctx context.Context, currency string) (float64, error) {
	return f.balance, nil
}

func (f *fakeExchange) GetPositions(ctx context.Context, instType string) ([]models.Position, error) {
	return f.positions, nil
}

func (f *fakeExchange) GetInstrumentMetadata(ctx context.Context, instType string, instIDs []string) (map[string]models.InstrumentMeta, error) {
	return f.meta, nil
}

func (f *fakeExchange) SetLeverage(ctx context.Context, instID string, leverage float64) error {
	f.leverageCalls++
	return nil
}

func (f *fakeExchange) SubmitMarketOrder(ctx context.Context, req exchange.MarketOrderRequest) (exchange.OrderAck, error) {
	f.submits = append(f.submits, req)
	if f.submitErr != nil {
		return exchange.OrderAck{}, f.submitErr
	}
	return f.nextAck()
}

func (f *fakeExchange) ClosePosition(ctx context.Context, instID string, posSide models.Side, clOrdID string) (exchange.OrderAck, error) {
	f.closes = append(f.closes, instID)
	if f.submitErr != nil {
		return exchange.OrderAck{}, f.submitErr
	}
	return f.nextAck()
}

func (f *fakeExchange) GetOrderByClientID(ctx context.Context, instID, clOrdID string) (models.OrderStatus, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return models.OrderStatus{}, f.statusErr
	}
	if len(f.statuses) == 0 {
		return models.OrderStatus{}, nil
	}
	status := f.statuses[0]
	f.statuses = f.statuses[1:]
	return status, nil
}

func (f *fakeExchange) GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	return f.candles[instID], nil
}

func (f *fakeExchange) nextAck() (exchange.OrderAck, error) {
	if len(f.acks) == 0 {
		return exchange.OrderAck{Code: "0", OrderID: "1"}, nil
	}
	ack := f.acks[0]
	f.acks = f.acks[1:]
	return ack, nil
}

// fakeStore is an in-memory ledger recording applied mutations.
type fakeStore struct {
	params     []models.InstrumentConfig
	positions  []models.OpenPosition
	added      []models.OpenPosition
	deleted    []string
	operations []models.ExecutionRecord
}

func (s *fakeStore) ReadParameters(ctx context.Context) ([]models.InstrumentConfig, error) {
	return s.params, nil
}

func (s *fakeStore) UpsertParameter(ctx context.Context, cfg models.InstrumentConfig) error {
	s.params = append(s.params, cfg)
	return nil
}

func (s *fakeStore) ListPositions(ctx context.Context) ([]models.OpenPosition, error) {
	return s.positions, nil
}

func (s *fakeStore) AddPosition(ctx context.Context, pos models.OpenPosition) error {
	s.added = append(s.added, pos)
	return nil
}

func (s *fakeStore) DeletePosition(ctx context.Context, ticker string) error {
	s.deleted = append(s.deleted, ticker)
	return nil
}

func (s *fakeStore) AddOperation(ctx context.Context, rec models.ExecutionRecord) error {
	s.operations = append(s.operations, rec)
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakeNotifier records every delivered batch.
type fakeNotifier struct {
	batches [][]string
}

func (n *fakeNotifier) SendMessages(ctx context.Context, messages []string) {
	n.batches = append(n.batches, messages)
}

// stubProvider serves canned snapshots keyed by ticker.
type stubProvider struct {
	snapshots map[string]*models.MarketSnapshot
	errs      map[string]error
}

func (p *stubProvider) GetSnapshot(ctx context.Context, cfg models.InstrumentConfig) (*models.MarketSnapshot, error) {
	if err, ok := p.errs[cfg.Ticker]; ok {
		return nil, err
	}
	snap, ok := p.snapshots[cfg.Ticker]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", cfg.Ticker)
	}
	return snap, nil
}

// snapshotOf builds a one-candle snapshot with the given indicator row.
func snapshotOf(ticker string, price, adx, rsi, cross float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		InstID:  ticker,
		Candles: []models.Candle{{Close: price}},
		ADX:     []float64{adx},
		RSI:     []float64{rsi},
		Cross:   []float64{cross},
	}
}
