// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfirmationTimeout = errors.New("order unconfirmed after retry: manual reconciliation required")
	ErrInstrumentNotFound  = errors.New("instrument not found")
	ErrPositionNotFound    = errors.New("position not found")
	ErrInsufficientData    = errors.New("insufficient data for calculation")
	ErrConfigInvalid       = errors.New("invalid configuration")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// ExchangeError represents a non-success response from the exchange,
// keyed on its numeric error code. Callers must branch on Code, never
// on message text.
type ExchangeError struct {
	Code    string
	Message string
	Op      string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error [%s] %s: %s", e.Code, e.Op, e.Message)
}

// NewExchangeError creates a new ExchangeError.
func NewExchangeError(code, op, message string) *ExchangeError {
	return &ExchangeError{Code: code, Op: op, Message: message}
}

// InvalidMarketDataError reports a non-positive price or contract
// value. It is fatal to the affected instrument's cycle iteration only.
type InvalidMarketDataError struct {
	Ticker string
	Field  string
	Value  float64
}

func (e *InvalidMarketDataError) Error() string {
	return fmt.Sprintf("invalid market data for %s: %s = %v", e.Ticker, e.Field, e.Value)
}

// OrderRejectedError reports that the exchange declined an order
// submission. The attempt is abandoned with no state mutation.
type OrderRejectedError struct {
	Ticker  string
	Side    string
	Code    string
	Message string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected [%s] %s %s: %s", e.Code, e.Side, e.Ticker, e.Message)
}
