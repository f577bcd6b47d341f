package exchange

import (
	"context"
	"sync"
	"time"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/models"
)

// PaperClient implements the Client interface for paper trading. Market
// data is fetched from a real (read-only) client; account state and
// order fills are simulated in memory with immediate fills at the last
// traded price.
type PaperClient struct {
	dataClient Client

	positions map[string]*models.Position
	orders    map[string]models.OrderStatus
	balance   float64
	lastPrice map[string]float64

	mu sync.RWMutex
}

// PaperConfig holds configuration for the paper client.
type PaperConfig struct {
	DataClient     Client
	InitialBalance float64
}

// NewPaperClient creates a new paper trading client.
func NewPaperClient(cfg PaperConfig) *PaperClient {
	balance := cfg.InitialBalance
	if balance == 0 {
		balance = 10000
	}
	return &PaperClient{
		dataClient: cfg.DataClient,
		positions:  make(map[string]*models.Position),
		orders:     make(map[string]models.OrderStatus),
		balance:    balance,
		lastPrice:  make(map[string]float64),
	}
}

// GetAvailableBalance returns the simulated balance.
func (p *PaperClient) GetAvailableBalance(ctx context.Context, currency string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance, nil
}

// GetPositions returns the simulated open positions.
func (p *PaperClient) GetPositions(ctx context.Context, instType string) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	positions := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		positions = append(positions, *pos)
	}
	return positions, nil
}

// GetInstrumentMetadata delegates to the data client.
func (p *PaperClient) GetInstrumentMetadata(ctx context.Context, instType string, instIDs []string) (map[string]models.InstrumentMeta, error) {
	return p.dataClient.GetInstrumentMetadata(ctx, instType, instIDs)
}

// SetLeverage is a no-op for paper trading.
func (p *PaperClient) SetLeverage(ctx context.Context, instID string, leverage float64) error {
	return nil
}

// SubmitMarketOrder simulates an immediate full fill at the last known
// price of the instrument.
func (p *PaperClient) SubmitMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.lastPrice[req.InstID]
	if !ok || price <= 0 {
		return OrderAck{Code: "51000", Message: "no market data for " + req.InstID}, nil
	}

	notional := req.Size * price
	p.positions[req.InstID] = &models.Position{
		InstID:      req.InstID,
		Side:        req.PosSide,
		AvgPrice:    price,
		MarkPrice:   price,
		Leverage:    1,
		Margin:      notional,
		NotionalUSD: notional,
	}
	p.orders[req.ClOrdID] = models.OrderStatus{
		Found:    true,
		FillTime: time.Now().UnixMilli(),
		AvgPrice: price,
		FillSize: req.Size,
		Fee:      -notional * 0.0005,
		State:    "filled",
	}
	return OrderAck{Code: "0", OrderID: req.ClOrdID}, nil
}

// ClosePosition simulates closing the tracked position at the last
// known price.
func (p *PaperClient) ClosePosition(ctx context.Context, instID string, posSide models.Side, clOrdID string) (OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[instID]
	if !ok {
		return OrderAck{}, apperrors.ErrPositionNotFound
	}
	price, ok := p.lastPrice[instID]
	if !ok || price <= 0 {
		price = pos.MarkPrice
	}

	size := pos.NotionalUSD / pos.AvgPrice
	pnl := (price - pos.AvgPrice) * size
	if pos.Side == models.SideShort {
		pnl = -pnl
	}
	p.balance += pnl
	delete(p.positions, instID)

	p.orders[clOrdID] = models.OrderStatus{
		Found:    true,
		FillTime: time.Now().UnixMilli(),
		AvgPrice: price,
		FillSize: size,
		Fee:      -size * price * 0.0005,
		PnL:      pnl,
		State:    "filled",
	}
	return OrderAck{Code: "0", OrderID: clOrdID}, nil
}

// GetOrderByClientID returns the simulated fill.
func (p *PaperClient) GetOrderByClientID(ctx context.Context, instID, clOrdID string) (models.OrderStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.orders[clOrdID], nil
}

// GetCandles fetches real candles and remembers the last close for
// fill simulation.
func (p *PaperClient) GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	candles, err := p.dataClient.GetCandles(ctx, instID, bar, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		p.mu.Lock()
		p.lastPrice[instID] = candles[len(candles)-1].Close
		p.mu.Unlock()
	}
	return candles, nil
}
