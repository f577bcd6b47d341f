// Package exchange provides exchange client interfaces and implementations.
package exchange

import (
	"context"

	"okx-trader/internal/models"
)

// Client defines the exchange operations the trading core consumes.
// All wire-level detail lives behind this interface.
type Client interface {
	// Account
	GetAvailableBalance(ctx context.Context, currency string) (float64, error)
	GetPositions(ctx context.Context, instType string) ([]models.Position, error)
	GetInstrumentMetadata(ctx context.Context, instType string, instIDs []string) (map[string]models.InstrumentMeta, error)
	SetLeverage(ctx context.Context, instID string, leverage float64) error

	// Orders
	SubmitMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderAck, error)
	ClosePosition(ctx context.Context, instID string, posSide models.Side, clOrdID string) (OrderAck, error)
	GetOrderByClientID(ctx context.Context, instID, clOrdID string) (models.OrderStatus, error)

	// Market data
	GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error)
}

// MarketOrderRequest describes a market order to open a position.
type MarketOrderRequest struct {
	InstID     string
	PosSide    models.Side
	Size       float64
	ClOrdID    string
	ReduceOnly bool
}

// OrderAck is the exchange's immediate answer to an order submission.
// Code "0" means accepted; any other code means rejected.
type OrderAck struct {
	Code    string
	OrderID string
	Message string
}

// Accepted reports whether the exchange accepted the order.
func (a OrderAck) Accepted() bool {
	return a.Code == "0"
}
