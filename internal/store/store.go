// Package store provides the ledger persistence interface and implementations.
package store

import (
	"context"

	"okx-trader/internal/models"
)

// Store is the durable ledger of the bot: instrument parameters, open
// position records and the operations journal. The exchange's position
// list stays the source of truth for position existence; the ledger is
// the source of truth for stop-loss/take-profit levels.
type Store interface {
	// Parameters
	ReadParameters(ctx context.Context) ([]models.InstrumentConfig, error)
	UpsertParameter(ctx context.Context, cfg models.InstrumentConfig) error

	// Positions
	ListPositions(ctx context.Context) ([]models.OpenPosition, error)
	AddPosition(ctx context.Context, pos models.OpenPosition) error
	DeletePosition(ctx context.Context, ticker string) error

	// Operations journal
	AddOperation(ctx context.Context, rec models.ExecutionRecord) error

	// Lifecycle
	Close() error
}
