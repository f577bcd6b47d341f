// Package marketdata provides market snapshots with derived indicator series.
package marketdata

import (
	"okx-trader/internal/models"
)

// calculateEMA calculates an exponential moving average series over raw
// values. Entries before the warm-up period are zero.
func calculateEMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return make([]float64, len(values))
	}

	result := make([]float64, len(values))
	multiplier := 2.0 / float64(period+1)

	// First EMA is an SMA.
	result[period-1] = mean(values[:period])

	for i := period; i < len(values); i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}
	return result
}

// crossSeries computes the EMA-cross ratio: fast EMA over slow EMA
// minus one. Positive values mean the fast average is above the slow.
func crossSeries(candles []models.Candle, fast, slow int) []float64 {
	closes := closePrices(candles)
	fastEMA := calculateEMA(closes, fast)
	slowEMA := calculateEMA(closes, slow)

	result := make([]float64, len(candles))
	for i := slow - 1; i < len(candles); i++ {
		if slowEMA[i] != 0 {
			result[i] = fastEMA[i]/slowEMA[i] - 1
		}
	}
	return result
}

// rsiSeries calculates the Relative Strength Index with Wilder smoothing.
func rsiSeries(candles []models.Candle, period int) []float64 {
	n := len(candles)
	result := make([]float64, n)
	if period <= 0 || n < period+1 {
		return result
	}

	closes := closePrices(candles)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := mean(gains[1 : period+1])
	avgLoss := mean(losses[1 : period+1])
	result[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result[i] = rsiValue(avgGain, avgLoss)
	}
	return result
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// adxSeries calculates the Average Directional Index using Wilder's
// smoothing of +DM, -DM and true range.
func adxSeries(candles []models.Candle, period int) []float64 {
	n := len(candles)
	result := make([]float64, n)
	if period <= 0 || n < period*2 {
		return result
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	smoothPlusDM := wilderSmooth(plusDM, period)
	smoothMinusDM := wilderSmooth(minusDM, period)
	smoothTR := wilderSmooth(tr, period)

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		var plusDI, minusDI float64
		if smoothTR[i] != 0 {
			plusDI = 100 * smoothPlusDM[i] / smoothTR[i]
			minusDI = 100 * smoothMinusDM[i] / smoothTR[i]
		}
		if diSum := plusDI + minusDI; diSum != 0 {
			dx[i] = 100 * abs(plusDI-minusDI) / diSum
		}
	}

	adx := wilderSmooth(dx[period:], period)
	for i := 0; i < len(adx); i++ {
		result[period+i] = adx[i]
	}
	return result
}

// wilder smoothing (shared by RSI and ADX).
func wilderSmooth(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	result := make([]float64, len(values))
	result[period-1] = mean(values[:period])

	multiplier := 1.0 / float64(period)
	for i := period; i < len(values); i++ {
		result[i] = result[i-1] + multiplier*(values[i]-result[i-1])
	}
	return result
}

func trueRange(current, previous models.Candle) float64 {
	highLow := current.High - current.Low
	highClose := abs(current.High - previous.Close)
	lowClose := abs(current.Low - previous.Close)
	return maxF(highLow, maxF(highClose, lowClose))
}

func closePrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
