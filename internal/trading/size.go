package trading

import (
	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/models"
)

// ContractSize converts the instrument's margin and leverage into a
// quantized contract count at the given price. A result of zero means
// the instrument cannot be traded this cycle (below minimum size); it
// is not an error.
//
// The order size on this exchange is a contract count, not a quote or
// base amount: one contract represents ctVal units of the quote
// currency, so contractValue = ctVal * price and
// contracts = margin * leverage / contractValue, floored to step size.
func ContractSize(cfg models.InstrumentConfig, price float64) (float64, error) {
	if price <= 0 {
		return 0, &apperrors.InvalidMarketDataError{Ticker: cfg.Ticker, Field: "price", Value: price}
	}

	contractValue := cfg.CtVal * price
	if contractValue <= 0 {
		return 0, &apperrors.InvalidMarketDataError{Ticker: cfg.Ticker, Field: "contract_value", Value: contractValue}
	}

	raw := cfg.Margin * cfg.Leverage / contractValue
	quantity := Quantize(raw, cfg.StepSize)

	if quantity < cfg.MinSize {
		return 0, nil
	}
	return quantity, nil
}
