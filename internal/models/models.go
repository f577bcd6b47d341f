// Package models provides domain models for the trading bot.
package models

import (
	"time"
)

// Side represents the direction of a position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the mirrored side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OpenReason explains why a position was opened.
type OpenReason string

const (
	OpenReasonNone          OpenReason = ""
	OpenReasonTrend         OpenReason = "trend"
	OpenReasonMeanReversion OpenReason = "mean_reversion"
)

// CloseReason explains why a position was closed.
type CloseReason string

const (
	CloseReasonNone       CloseReason = ""
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
)

// Candle represents a confirmed OHLCV bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// MarketSnapshot holds the confirmed candle history of one instrument
// together with its derived indicator series. Series are index-aligned
// with Candles; only the latest row drives trading decisions.
type MarketSnapshot struct {
	InstID  string
	Candles []Candle
	ADX     []float64
	RSI     []float64
	Cross   []float64 // EMA fast/slow ratio minus one
}

// LastPrice returns the close of the latest confirmed candle.
func (s *MarketSnapshot) LastPrice() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// Latest returns the indicator values of the latest confirmed candle.
func (s *MarketSnapshot) Latest() (adx, rsi, cross float64) {
	n := len(s.Candles)
	if n == 0 {
		return 0, 0, 0
	}
	return s.ADX[n-1], s.RSI[n-1], s.Cross[n-1]
}

// InstrumentMeta is the exchange-reported contract metadata of an
// instrument.
type InstrumentMeta struct {
	InstID   string
	CtVal    float64 // USD value of one contract unit
	MinSize  float64 // minimum tradable contract count
	StepSize float64 // minimum increment between valid sizes (OKX lotSz)
}

// InstrumentConfig is the per-ticker trading configuration. The
// strategy fields come from the parameter store; the contract metadata
// is merged in from the exchange before use and the combined struct is
// validated. It is immutable for the duration of one cycle.
type InstrumentConfig struct {
	Ticker       string  `validate:"required"`
	Timeframe    string  `validate:"required"`
	ADXThreshold float64 `validate:"gt=0"`
	RSIThreshold float64 `validate:"gt=0,lt=100"`
	EMAFast      int     `validate:"gt=0"`
	EMASlow      int     `validate:"gt=0,gtfield=EMAFast"`
	Margin       float64 `validate:"gt=0"`
	Leverage     float64 `validate:"gte=1"`
	TakeProfit   float64 `validate:"gt=0,lt=1"` // fraction of entry price
	StopLoss     float64 `validate:"gt=0,lt=1"` // fraction of entry price

	// Exchange contract metadata, populated by the merge step.
	CtVal    float64 `validate:"gt=0"`
	MinSize  float64 `validate:"gt=0"`
	StepSize float64 `validate:"gt=0"`
}

// Position is the exchange's authoritative view of a live position.
type Position struct {
	InstID      string
	Side        Side
	AvgPrice    float64
	MarkPrice   float64
	Leverage    float64
	Margin      float64
	NotionalUSD float64
}

// OpenPosition is the bot's ledger record of a live position. The
// exchange does not store stop-loss/take-profit levels, so the ledger
// is their source of truth.
type OpenPosition struct {
	Ticker     string
	Side       Side
	AvgPrice   float64
	Contracts  float64
	StopLoss   float64
	TakeProfit float64
	Leverage   float64
	Margin     float64
	Notional   float64
	Fee        float64
	OpenedAt   string
}

// ExecutionRecord is the normalized result of a confirmed order. It is
// never mutated after creation.
type ExecutionRecord struct {
	Ticker        string
	Kind          OperationKind
	Side          Side
	ExecutionTime string
	AvgPrice      float64
	Contracts     float64
	Fee           float64
	PnL           float64 // close only
	Margin        float64
	Notional      float64
	Leverage      float64
	Reason        string
}

// OperationKind distinguishes ledger operation rows.
type OperationKind string

const (
	OperationOpen  OperationKind = "open"
	OperationClose OperationKind = "close"
)

// OrderStatus is the exchange's answer to an order query by client
// order id.
type OrderStatus struct {
	Found    bool
	FillTime int64 // exchange epoch millis
	AvgPrice float64
	FillSize float64
	Fee      float64
	PnL      float64
	State    string
}
