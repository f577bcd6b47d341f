package trading

import (
	"math"
	"testing"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/models"
)

func sizerConfig() models.InstrumentConfig {
	return models.InstrumentConfig{
		Ticker:   "BTC-USDT-SWAP",
		Margin:   100,
		Leverage: 1,
		CtVal:    0.001,
		MinSize:  0.1,
		StepSize: 0.1,
	}
}

func TestContractSize(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.InstrumentConfig)
		price  float64
		want   float64
	}{
		{
			// 100 * 1 / (0.001 * 60000) = 1.666..., floored to 1.6
			name:  "sizes and quantizes",
			price: 60000,
			want:  1.6,
		},
		{
			name:   "leverage scales linearly",
			mutate: func(c *models.InstrumentConfig) { c.Leverage = 3 },
			price:  60000,
			want:   5.0,
		},
		{
			name:   "below minimum yields zero",
			mutate: func(c *models.InstrumentConfig) { c.Margin = 1 },
			price:  60000,
			want:   0,
		},
		{
			name:   "exactly minimum is tradable",
			mutate: func(c *models.InstrumentConfig) { c.Margin = 6 },
			price:  60000,
			want:   0.1,
		},
		{
			name:   "whole contract step",
			mutate: func(c *models.InstrumentConfig) { c.StepSize = 1; c.MinSize = 1 },
			price:  60000,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sizerConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			got, err := ContractSize(cfg, tt.price)
			if err != nil {
				t.Fatalf("ContractSize: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ContractSize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContractSizeInvalidMarketData(t *testing.T) {
	cfg := sizerConfig()

	for _, price := range []float64{0, -1} {
		_, err := ContractSize(cfg, price)
		var invalid *apperrors.InvalidMarketDataError
		if !apperrors.As(err, &invalid) {
			t.Fatalf("price %v: got %v, want InvalidMarketDataError", price, err)
		}
	}

	cfg.CtVal = 0
	_, err := ContractSize(cfg, 60000)
	var invalid *apperrors.InvalidMarketDataError
	if !apperrors.As(err, &invalid) {
		t.Fatalf("ctVal 0: got %v, want InvalidMarketDataError", err)
	}
}
