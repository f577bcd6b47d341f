package marketdata

import (
	"context"
	"fmt"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/exchange"
	"okx-trader/internal/models"
)

// adxPeriod and rsiPeriod follow the strategy's fixed 14-bar windows;
// only the EMA windows are configurable per instrument.
const (
	adxPeriod = 14
	rsiPeriod = 14
)

// Provider supplies indicator-annotated market snapshots.
type Provider interface {
	GetSnapshot(ctx context.Context, cfg models.InstrumentConfig) (*models.MarketSnapshot, error)
}

// ExchangeProvider builds snapshots from exchange candle data.
type ExchangeProvider struct {
	client      exchange.Client
	candleLimit int
}

// NewExchangeProvider creates a provider backed by an exchange client.
func NewExchangeProvider(client exchange.Client, candleLimit int) *ExchangeProvider {
	if candleLimit <= 0 {
		candleLimit = 300
	}
	return &ExchangeProvider{client: client, candleLimit: candleLimit}
}

// GetSnapshot fetches confirmed candles for the instrument and derives
// the ADX, RSI and EMA-cross series. The slow EMA window plus the ADX
// warm-up must fit inside the fetched history.
func (p *ExchangeProvider) GetSnapshot(ctx context.Context, cfg models.InstrumentConfig) (*models.MarketSnapshot, error) {
	candles, err := p.client.GetCandles(ctx, cfg.Ticker, cfg.Timeframe, p.candleLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", cfg.Ticker, err)
	}

	minBars := cfg.EMASlow
	if adxPeriod*2 > minBars {
		minBars = adxPeriod * 2
	}
	if len(candles) < minBars+1 {
		return nil, fmt.Errorf("%w: %s has %d confirmed bars, need %d",
			apperrors.ErrInsufficientData, cfg.Ticker, len(candles), minBars+1)
	}

	return &models.MarketSnapshot{
		InstID:  cfg.Ticker,
		Candles: candles,
		ADX:     adxSeries(candles, adxPeriod),
		RSI:     rsiSeries(candles, rsiPeriod),
		Cross:   crossSeries(candles, cfg.EMAFast, cfg.EMASlow),
	}, nil
}
