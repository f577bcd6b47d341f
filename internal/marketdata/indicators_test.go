package marketdata

import (
	"math"
	"testing"

	"okx-trader/internal/models"
)

func constantCandles(n int, price float64) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{Open: price, High: price, Low: price, Close: price}
	}
	return candles
}

func risingCandles(n int, start, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		base := start + float64(i)*step
		candles[i] = models.Candle{Open: base, High: base + step, Low: base, Close: base + step/2}
	}
	return candles
}

func fallingCandles(n int, start, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		base := start - float64(i)*step
		candles[i] = models.Candle{Open: base, High: base, Low: base - step, Close: base - step/2}
	}
	return candles
}

func TestCalculateEMA(t *testing.T) {
	t.Run("constant series settles on the constant", func(t *testing.T) {
		values := make([]float64, 30)
		for i := range values {
			values[i] = 42
		}
		ema := calculateEMA(values, 10)
		for i := 9; i < len(ema); i++ {
			if math.Abs(ema[i]-42) > 1e-9 {
				t.Fatalf("ema[%d] = %v, want 42", i, ema[i])
			}
		}
		for i := 0; i < 9; i++ {
			if ema[i] != 0 {
				t.Fatalf("ema[%d] = %v, want 0 during warm-up", i, ema[i])
			}
		}
	})

	t.Run("short series yields zeros", func(t *testing.T) {
		ema := calculateEMA([]float64{1, 2, 3}, 10)
		if len(ema) != 3 {
			t.Fatalf("len = %d, want 3", len(ema))
		}
		for i, v := range ema {
			if v != 0 {
				t.Errorf("ema[%d] = %v, want 0", i, v)
			}
		}
	})

	t.Run("rising series lags below latest value", func(t *testing.T) {
		values := make([]float64, 30)
		for i := range values {
			values[i] = float64(100 + i)
		}
		ema := calculateEMA(values, 10)
		last := ema[len(ema)-1]
		if last >= values[len(values)-1] || last <= values[0] {
			t.Errorf("ema = %v, want between %v and %v", last, values[0], values[len(values)-1])
		}
	})
}

func TestCrossSeries(t *testing.T) {
	tests := []struct {
		name    string
		candles []models.Candle
		wantPos bool
		wantNeg bool
	}{
		{"rising market crosses positive", risingCandles(60, 100, 1), true, false},
		{"falling market crosses negative", fallingCandles(60, 200, 1), false, true},
		{"flat market stays at zero", constantCandles(60, 100), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cross := crossSeries(tt.candles, 12, 26)
			if len(cross) != len(tt.candles) {
				t.Fatalf("len = %d, want %d", len(cross), len(tt.candles))
			}
			last := cross[len(cross)-1]
			switch {
			case tt.wantPos && last <= 0:
				t.Errorf("cross = %v, want positive", last)
			case tt.wantNeg && last >= 0:
				t.Errorf("cross = %v, want negative", last)
			case !tt.wantPos && !tt.wantNeg && math.Abs(last) > 1e-9:
				t.Errorf("cross = %v, want zero", last)
			}
		})
	}
}

func TestRSISeries(t *testing.T) {
	t.Run("all gains saturates at 100", func(t *testing.T) {
		rsi := rsiSeries(risingCandles(40, 100, 1), 14)
		if last := rsi[len(rsi)-1]; math.Abs(last-100) > 1e-9 {
			t.Errorf("rsi = %v, want 100", last)
		}
	})

	t.Run("all losses saturates at 0", func(t *testing.T) {
		rsi := rsiSeries(fallingCandles(40, 200, 1), 14)
		if last := rsi[len(rsi)-1]; math.Abs(last) > 1e-9 {
			t.Errorf("rsi = %v, want 0", last)
		}
	})

	t.Run("warm-up entries are zero", func(t *testing.T) {
		rsi := rsiSeries(risingCandles(40, 100, 1), 14)
		for i := 0; i < 14; i++ {
			if rsi[i] != 0 {
				t.Errorf("rsi[%d] = %v, want 0", i, rsi[i])
			}
		}
	})

	t.Run("stays within bounds on mixed data", func(t *testing.T) {
		candles := make([]models.Candle, 60)
		price := 100.0
		for i := range candles {
			if i%3 == 0 {
				price += 2
			} else {
				price -= 1
			}
			candles[i] = models.Candle{High: price + 1, Low: price - 1, Close: price}
		}
		rsi := rsiSeries(candles, 14)
		for i := 14; i < len(rsi); i++ {
			if rsi[i] < 0 || rsi[i] > 100 {
				t.Fatalf("rsi[%d] = %v, out of [0, 100]", i, rsi[i])
			}
		}
	})
}

func TestADXSeries(t *testing.T) {
	t.Run("sustained trend reads strong", func(t *testing.T) {
		adx := adxSeries(risingCandles(60, 100, 1), 14)
		if last := adx[len(adx)-1]; last < 50 {
			t.Errorf("adx = %v, want strong trend reading", last)
		}
	})

	t.Run("flat market reads zero", func(t *testing.T) {
		adx := adxSeries(constantCandles(60, 100), 14)
		if last := adx[len(adx)-1]; last != 0 {
			t.Errorf("adx = %v, want 0", last)
		}
	})

	t.Run("insufficient history yields zeros", func(t *testing.T) {
		adx := adxSeries(risingCandles(20, 100, 1), 14)
		for i, v := range adx {
			if v != 0 {
				t.Errorf("adx[%d] = %v, want 0", i, v)
			}
		}
	})

	t.Run("bounded on mixed data", func(t *testing.T) {
		candles := make([]models.Candle, 80)
		price := 100.0
		for i := range candles {
			if i%2 == 0 {
				price += 3
			} else {
				price -= 2
			}
			candles[i] = models.Candle{High: price + 2, Low: price - 2, Close: price}
		}
		adx := adxSeries(candles, 14)
		for i, v := range adx {
			if v < 0 || v > 100 {
				t.Fatalf("adx[%d] = %v, out of [0, 100]", i, v)
			}
		}
	})
}
