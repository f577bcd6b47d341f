package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/exchange"
	"okx-trader/internal/models"
)

// OrderManager drives a single order through its lifecycle:
// submit, confirm by client order id, normalize the fill into an
// ExecutionRecord and queue the resulting ledger and alert entries.
//
// It never writes to the ledger store directly; all side effects go
// through the CycleOutbox and are flushed at cycle end. The trade
// itself is irreversible the moment the exchange fills it.
type OrderManager struct {
	client       exchange.Client
	logger       zerolog.Logger
	confirmDelay time.Duration
}

// NewOrderManager creates a new order lifecycle manager. confirmDelay
// is the fixed wait before the single confirmation retry.
func NewOrderManager(client exchange.Client, logger zerolog.Logger, confirmDelay time.Duration) *OrderManager {
	if confirmDelay <= 0 {
		confirmDelay = time.Second
	}
	return &OrderManager{
		client:       client,
		logger:       logger,
		confirmDelay: confirmDelay,
	}
}

// Open submits a market order for the instrument, confirms the fill
// and computes the position's take-profit and stop-loss levels from
// the confirmed average fill price.
//
// A rejected submission leaves all state untouched: an alert is queued
// and no ExecutionRecord is produced.
func (m *OrderManager) Open(ctx context.Context, cfg models.InstrumentConfig, side models.Side, reason models.OpenReason, size float64, outbox *models.CycleOutbox) (*models.OpenPosition, error) {
	clOrdID := exchange.NewClientOrderID()
	log := m.logger.With().Str("inst_id", cfg.Ticker).Str("cl_ord_id", clOrdID).Logger()

	log.Info().Str("side", string(side)).Str("reason", string(reason)).
		Float64("contracts", size).Msg("submitting open order")

	ack, err := m.client.SubmitMarketOrder(ctx, exchange.MarketOrderRequest{
		InstID:  cfg.Ticker,
		PosSide: side,
		Size:    size,
		ClOrdID: clOrdID,
	})
	if err != nil {
		outbox.Alert(fmt.Sprintf("Failed to submit open order for %s: %v", cfg.Ticker, err))
		return nil, fmt.Errorf("submitting open order for %s: %w", cfg.Ticker, err)
	}
	if !ack.Accepted() {
		outbox.Alert(fmt.Sprintf("Open order rejected for %s (%s, %v contracts): code %s",
			cfg.Ticker, side, size, ack.Code))
		return nil, &apperrors.OrderRejectedError{
			Ticker: cfg.Ticker, Side: string(side), Code: ack.Code, Message: ack.Message,
		}
	}

	status, err := m.confirm(ctx, cfg.Ticker, clOrdID)
	if err != nil {
		outbox.Alert(fmt.Sprintf("Open order for %s unconfirmed after retry, manual reconciliation required (clOrdId %s)",
			cfg.Ticker, clOrdID))
		return nil, err
	}

	takeProfit := status.AvgPrice * (1 + cfg.TakeProfit)
	stopLoss := status.AvgPrice * (1 - cfg.StopLoss)
	if side == models.SideShort {
		takeProfit = status.AvgPrice * (1 - cfg.TakeProfit)
		stopLoss = status.AvgPrice * (1 + cfg.StopLoss)
	}

	notional := status.FillSize * cfg.CtVal * status.AvgPrice

	rec := &models.ExecutionRecord{
		Ticker:        cfg.Ticker,
		Kind:          models.OperationOpen,
		Side:          side,
		ExecutionTime: formatFillTime(status.FillTime),
		AvgPrice:      status.AvgPrice,
		Contracts:     status.FillSize,
		Fee:           status.Fee,
		Margin:        cfg.Margin,
		Notional:      notional,
		Leverage:      cfg.Leverage,
		Reason:        string(reason),
	}
	pos := &models.OpenPosition{
		Ticker:     cfg.Ticker,
		Side:       side,
		AvgPrice:   status.AvgPrice,
		Contracts:  status.FillSize,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Leverage:   cfg.Leverage,
		Margin:     cfg.Margin,
		Notional:   notional,
		Fee:        status.Fee,
		OpenedAt:   rec.ExecutionTime,
	}

	outbox.QueueOpen(rec, pos)
	outbox.Alert(fmt.Sprintf("Opened %s %s (%s) at %v, tp %v sl %v",
		side, cfg.Ticker, reason, status.AvgPrice, takeProfit, stopLoss))

	log.Info().Float64("avg_price", status.AvgPrice).Float64("fill_size", status.FillSize).
		Msg("open order filled")
	return pos, nil
}

// Close drives the exchange's close-position primitive for an open
// position, confirms the fill and records the realized PnL. margin and
// notional are the exchange-reported figures captured before the close.
func (m *OrderManager) Close(ctx context.Context, pos models.OpenPosition, reason models.CloseReason, margin, notional float64, outbox *models.CycleOutbox) (*models.ExecutionRecord, error) {
	clOrdID := exchange.NewClientOrderID()
	log := m.logger.With().Str("inst_id", pos.Ticker).Str("cl_ord_id", clOrdID).Logger()

	log.Info().Str("side", string(pos.Side)).Str("reason", string(reason)).Msg("closing position")

	ack, err := m.client.ClosePosition(ctx, pos.Ticker, pos.Side, clOrdID)
	if err != nil {
		outbox.Alert(fmt.Sprintf("Failed to submit close order for %s: %v", pos.Ticker, err))
		return nil, fmt.Errorf("closing position %s: %w", pos.Ticker, err)
	}
	if !ack.Accepted() {
		outbox.Alert(fmt.Sprintf("Close order rejected for %s (%s): code %s",
			pos.Ticker, pos.Side, ack.Code))
		return nil, &apperrors.OrderRejectedError{
			Ticker: pos.Ticker, Side: string(pos.Side), Code: ack.Code, Message: ack.Message,
		}
	}

	status, err := m.confirm(ctx, pos.Ticker, clOrdID)
	if err != nil {
		outbox.Alert(fmt.Sprintf("Close order for %s unconfirmed after retry, manual reconciliation required (clOrdId %s)",
			pos.Ticker, clOrdID))
		return nil, err
	}

	rec := &models.ExecutionRecord{
		Ticker:        pos.Ticker,
		Kind:          models.OperationClose,
		Side:          pos.Side,
		ExecutionTime: formatFillTime(status.FillTime),
		AvgPrice:      status.AvgPrice,
		Contracts:     status.FillSize,
		Fee:           status.Fee,
		PnL:           status.PnL,
		Margin:        margin,
		Notional:      notional,
		Leverage:      pos.Leverage,
		Reason:        string(reason),
	}

	outbox.QueueClose(rec)
	outbox.Alert(fmt.Sprintf("Closed %s %s (%s) at %v, pnl %v",
		pos.Side, pos.Ticker, reason, status.AvgPrice, status.PnL))

	log.Info().Float64("avg_price", status.AvgPrice).Float64("pnl", status.PnL).
		Msg("close order filled")
	return rec, nil
}

// confirm queries the order by client id, retrying exactly once after
// confirmDelay when the exchange has not indexed the order yet. A
// second empty answer is a ConfirmationTimeout: the order may still
// have filled on the exchange, so the caller must report it rather
// than guess.
func (m *OrderManager) confirm(ctx context.Context, instID, clOrdID string) (models.OrderStatus, error) {
	status, err := m.client.GetOrderByClientID(ctx, instID, clOrdID)
	if err != nil {
		return models.OrderStatus{}, fmt.Errorf("querying order %s: %w", clOrdID, err)
	}
	if status.Found {
		return status, nil
	}

	select {
	case <-time.After(m.confirmDelay):
	case <-ctx.Done():
		return models.OrderStatus{}, ctx.Err()
	}

	status, err = m.client.GetOrderByClientID(ctx, instID, clOrdID)
	if err != nil {
		return models.OrderStatus{}, fmt.Errorf("querying order %s: %w", clOrdID, err)
	}
	if !status.Found {
		return models.OrderStatus{}, fmt.Errorf("order %s on %s: %w", clOrdID, instID, apperrors.ErrConfirmationTimeout)
	}
	return status, nil
}

// formatFillTime renders an exchange epoch-millis fill time as a
// human-readable local timestamp.
func formatFillTime(millis int64) string {
	return time.UnixMilli(millis).Format("2006-01-02 15:04:05")
}
