package marketdata

import (
	"context"
	"testing"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/exchange"
	"okx-trader/internal/models"
)

// candleClient serves canned candles; the other client methods are
// unused by the provider.
type candleClient struct {
	candles []models.Candle
}

func (c *candleClient) GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	return c.candles, nil
}

func (c *candleClient) GetAvailableBalance(ctx context.Context, currency string) (float64, error) {
	return 0, nil
}

func (c *candleClient) GetPositions(ctx context.Context, instType string) ([]models.Position, error) {
	return nil, nil
}

func (c *candleClient) GetInstrumentMetadata(ctx context.Context, instType string, instIDs []string) (map[string]models.InstrumentMeta, error) {
	return nil, nil
}

func (c *candleClient) SetLeverage(ctx context.Context, instID string, leverage float64) error {
	return nil
}

func (c *candleClient) SubmitMarketOrder(ctx context.Context, req exchange.MarketOrderRequest) (exchange.OrderAck, error) {
	return exchange.OrderAck{}, nil
}

func (c *candleClient) ClosePosition(ctx context.Context, instID string, posSide models.Side, clOrdID string) (exchange.OrderAck, error) {
	return exchange.OrderAck{}, nil
}

func (c *candleClient) GetOrderByClientID(ctx context.Context, instID, clOrdID string) (models.OrderStatus, error) {
	return models.OrderStatus{}, nil
}

func providerConfig() models.InstrumentConfig {
	return models.InstrumentConfig{
		Ticker:    "BTC-USDT-SWAP",
		Timeframe: "15m",
		EMAFast:   12,
		EMASlow:   26,
	}
}

func TestGetSnapshotAlignsSeries(t *testing.T) {
	client := &candleClient{candles: risingCandles(120, 100, 1)}
	provider := NewExchangeProvider(client, 300)

	snap, err := provider.GetSnapshot(context.Background(), providerConfig())
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	n := len(snap.Candles)
	if n != 120 {
		t.Fatalf("candles = %d, want 120", n)
	}
	if len(snap.ADX) != n || len(snap.RSI) != n || len(snap.Cross) != n {
		t.Errorf("series lengths %d/%d/%d, want %d", len(snap.ADX), len(snap.RSI), len(snap.Cross), n)
	}
	if snap.LastPrice() != snap.Candles[n-1].Close {
		t.Errorf("last price = %v, want latest close", snap.LastPrice())
	}
}

func TestGetSnapshotInsufficientData(t *testing.T) {
	client := &candleClient{candles: risingCandles(20, 100, 1)}
	provider := NewExchangeProvider(client, 300)

	_, err := provider.GetSnapshot(context.Background(), providerConfig())
	if !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}
