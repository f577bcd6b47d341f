package trading

import (
	"okx-trader/internal/models"
)

// ShouldOpen maps the latest confirmed indicator values to an entry
// decision. ADX above its threshold means a strong trend and the EMA
// cross sign picks the direction; below it, RSI mean reversion fades
// the move. Equality with either threshold yields no action: the
// boundary is deliberately excluded from both branches.
func ShouldOpen(adx, rsi, cross float64, cfg models.InstrumentConfig) (bool, models.Side, models.OpenReason) {
	switch {
	case adx > cfg.ADXThreshold:
		if cross > 0 {
			return true, models.SideLong, models.OpenReasonTrend
		}
		if cross < 0 {
			return true, models.SideShort, models.OpenReasonTrend
		}
	case adx < cfg.ADXThreshold:
		if rsi > cfg.RSIThreshold {
			return true, models.SideShort, models.OpenReasonMeanReversion
		}
		if rsi < cfg.RSIThreshold {
			return true, models.SideLong, models.OpenReasonMeanReversion
		}
	}
	return false, "", models.OpenReasonNone
}

// ShouldClose checks the latest price against the position's stop-loss
// and take-profit levels. Stop-loss is evaluated first and both
// boundaries are inclusive, so a touch of the exact level exits.
func ShouldClose(pos models.OpenPosition, lastPrice float64) (bool, models.CloseReason) {
	if pos.Side == models.SideLong {
		if lastPrice <= pos.StopLoss {
			return true, models.CloseReasonStopLoss
		}
		if lastPrice >= pos.TakeProfit {
			return true, models.CloseReasonTakeProfit
		}
		return false, models.CloseReasonNone
	}

	if lastPrice >= pos.StopLoss {
		return true, models.CloseReasonStopLoss
	}
	if lastPrice <= pos.TakeProfit {
		return true, models.CloseReasonTakeProfit
	}
	return false, models.CloseReasonNone
}
