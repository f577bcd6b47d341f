package trading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/exchange"
	"okx-trader/internal/marketdata"
	"okx-trader/internal/metrics"
	"okx-trader/internal/models"
	"okx-trader/internal/notify"
	"okx-trader/internal/store"
)

// Orchestrator drives one evaluation cycle across all configured
// instruments: it reconciles the ledger against the exchange's
// position list, closes positions that hit their levels, opens new
// ones within the margin headroom, and flushes the accumulated alerts
// and ledger mutations exactly once at cycle end.
type Orchestrator struct {
	client   exchange.Client
	ledger   store.Store
	notifier notify.Notifier
	provider marketdata.Provider
	orders   *OrderManager
	logger   zerolog.Logger
	validate *validator.Validate

	instType string
	currency string
	haircut  float64
}

// OrchestratorConfig holds the orchestrator's collaborators and knobs.
type OrchestratorConfig struct {
	Client   exchange.Client
	Ledger   store.Store
	Notifier notify.Notifier
	Provider marketdata.Provider
	Orders   *OrderManager
	Logger   zerolog.Logger

	InstType       string  // exchange instrument type, e.g. SWAP
	Currency       string  // settlement currency, e.g. USDT
	BalanceHaircut float64 // usable fraction of the available balance
}

// NewOrchestrator creates a new cycle orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	haircut := cfg.BalanceHaircut
	if haircut <= 0 || haircut > 1 {
		haircut = 0.99
	}
	instType := cfg.InstType
	if instType == "" {
		instType = "SWAP"
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "USDT"
	}
	return &Orchestrator{
		client:   cfg.Client,
		ledger:   cfg.Ledger,
		notifier: cfg.Notifier,
		provider: cfg.Provider,
		orders:   cfg.Orders,
		logger:   cfg.Logger,
		validate: validator.New(),
		instType: instType,
		currency: currency,
		haircut:  haircut,
	}
}

// RunCycle executes one full evaluation pass. An error return means
// cycle setup failed and nothing was flushed; the caller alerts and
// retries on the next tick, re-deriving all state from the ledger and
// the exchange.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	started := time.Now()

	configs, err := o.loadConfigs(ctx)
	if err != nil {
		return fmt.Errorf("loading instrument configs: %w", err)
	}
	exchangePositions, err := o.client.GetPositions(ctx, o.instType)
	if err != nil {
		return fmt.Errorf("fetching exchange positions: %w", err)
	}
	recorded, err := o.ledger.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("reading ledger positions: %w", err)
	}
	balance, err := o.client.GetAvailableBalance(ctx, o.currency)
	if err != nil {
		return fmt.Errorf("fetching balance: %w", err)
	}

	o.setLeverage(ctx, configs)

	byInst := make(map[string]models.Position, len(exchangePositions))
	for _, p := range exchangePositions {
		byInst[p.InstID] = p
	}

	outbox := &models.CycleOutbox{}
	snapshots := newSnapshotCache(o.provider, configs)

	closedThisCycle := o.closePositions(ctx, recorded, byInst, snapshots, outbox)
	opened := o.openPositions(ctx, configs, recorded, closedThisCycle, balance, snapshots, outbox)

	if err := o.flush(ctx, outbox); err != nil {
		return err
	}

	metrics.OpenPositions.Set(float64(len(recorded) - len(closedThisCycle) + opened))
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	o.logger.Info().
		Int("instruments", len(configs)).
		Int("closed", len(closedThisCycle)).
		Int("opened", opened).
		Dur("duration", time.Since(started)).
		Msg("cycle complete")
	return nil
}

// loadConfigs reads instrument parameters from the ledger, merges the
// exchange's contract metadata in a second step and validates each
// combined config. Instruments that fail validation are dropped from
// this cycle with a logged warning; a metadata fetch failure aborts
// the cycle.
func (o *Orchestrator) loadConfigs(ctx context.Context) ([]models.InstrumentConfig, error) {
	params, err := o.ledger.ReadParameters(ctx)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, nil
	}

	tickers := make([]string, 0, len(params))
	for _, p := range params {
		tickers = append(tickers, p.Ticker)
	}
	meta, err := o.client.GetInstrumentMetadata(ctx, o.instType, tickers)
	if err != nil {
		return nil, err
	}

	configs := make([]models.InstrumentConfig, 0, len(params))
	for _, cfg := range params {
		m, ok := meta[cfg.Ticker]
		if !ok {
			o.logger.Warn().Str("inst_id", cfg.Ticker).Msg("instrument unknown to exchange, skipping")
			continue
		}
		cfg.CtVal = m.CtVal
		cfg.MinSize = m.MinSize
		cfg.StepSize = m.StepSize

		if err := o.validate.Struct(cfg); err != nil {
			o.logger.Warn().Err(err).Str("inst_id", cfg.Ticker).Msg("invalid instrument config, skipping")
			continue
		}
		configs = append(configs, cfg)
	}

	// Processing order is unspecified by the parameter source; sort for
	// reproducible cycles.
	sort.Slice(configs, func(i, j int) bool { return configs[i].Ticker < configs[j].Ticker })
	return configs, nil
}

// setLeverage applies each instrument's configured leverage. Failures
// are logged only: the exchange rejects redundant changes while a
// position is open, and the order itself would surface a real problem.
func (o *Orchestrator) setLeverage(ctx context.Context, configs []models.InstrumentConfig) {
	for _, cfg := range configs {
		if err := o.client.SetLeverage(ctx, cfg.Ticker, cfg.Leverage); err != nil {
			o.logger.Debug().Err(err).Str("inst_id", cfg.Ticker).Msg("set leverage failed")
		}
	}
}

// closePositions walks the ledger's recorded positions. Records the
// exchange no longer reports are drift: they get an alert and a delete
// mutation, and no order is submitted. Live records are evaluated
// against their stop-loss/take-profit levels and closed when hit.
// Returns the set of tickers closed this cycle.
func (o *Orchestrator) closePositions(ctx context.Context, recorded []models.OpenPosition, byInst map[string]models.Position, snapshots *snapshotCache, outbox *models.CycleOutbox) map[string]bool {
	closed := make(map[string]bool)

	for _, pos := range recorded {
		log := o.logger.With().Str("inst_id", pos.Ticker).Logger()

		exchPos, live := byInst[pos.Ticker]
		if !live {
			log.Warn().Msg("recorded position not reported by exchange, healing ledger")
			outbox.Alert(fmt.Sprintf("Position %s not found on exchange, removing ledger record", pos.Ticker))
			outbox.QueueDriftDelete(pos.Ticker)
			metrics.DriftHeals.Inc()
			continue
		}

		snap, err := snapshots.get(ctx, pos.Ticker)
		if err != nil {
			log.Error().Err(err).Msg("snapshot unavailable, skipping close evaluation")
			continue
		}

		shouldClose, reason := ShouldClose(pos, snap.LastPrice())
		if !shouldClose {
			continue
		}

		margin := round2(exchPos.Margin)
		notional := round2(exchPos.NotionalUSD)
		if _, err := o.orders.Close(ctx, pos, reason, margin, notional, outbox); err != nil {
			log.Error().Err(err).Msg("close attempt failed")
			metrics.OrderFailures.WithLabelValues(failureReason(err)).Inc()
			continue
		}
		metrics.Orders.WithLabelValues(string(models.OperationClose), string(pos.Side)).Inc()
		closed[pos.Ticker] = true
	}
	return closed
}

// openPositions evaluates entry signals for every configured
// instrument that is not already open and was not closed this cycle.
// The in-memory balance is debited by the configured margin on each
// open, a conservative stand-in for the actual fill within the cycle.
// Returns the number of positions opened.
func (o *Orchestrator) openPositions(ctx context.Context, configs []models.InstrumentConfig, recorded []models.OpenPosition, closedThisCycle map[string]bool, balance float64, snapshots *snapshotCache, outbox *models.CycleOutbox) int {
	openTickers := make(map[string]bool, len(recorded))
	for _, pos := range recorded {
		openTickers[pos.Ticker] = true
	}

	available := balance
	opened := 0

	for _, cfg := range configs {
		if openTickers[cfg.Ticker] || closedThisCycle[cfg.Ticker] {
			continue
		}
		log := o.logger.With().Str("inst_id", cfg.Ticker).Logger()

		snap, err := snapshots.get(ctx, cfg.Ticker)
		if err != nil {
			log.Error().Err(err).Msg("snapshot unavailable, skipping open evaluation")
			continue
		}

		adx, rsi, cross := snap.Latest()
		shouldOpen, side, reason := ShouldOpen(adx, rsi, cross, cfg)
		if !shouldOpen {
			continue
		}

		if available*o.haircut <= cfg.Margin {
			log.Info().Float64("available", available).Float64("margin", cfg.Margin).
				Msg("insufficient margin headroom")
			outbox.Alert(fmt.Sprintf("Insufficient balance to open %s, margin %v", cfg.Ticker, cfg.Margin))
			continue
		}

		size, err := ContractSize(cfg, snap.LastPrice())
		if err != nil {
			log.Error().Err(err).Msg("sizing failed")
			continue
		}
		if size == 0 {
			log.Info().Msg("quantized size below instrument minimum, skipping")
			continue
		}

		if _, err := o.orders.Open(ctx, cfg, side, reason, size, outbox); err != nil {
			log.Error().Err(err).Msg("open attempt failed")
			metrics.OrderFailures.WithLabelValues(failureReason(err)).Inc()
			continue
		}
		metrics.Orders.WithLabelValues(string(models.OperationOpen), string(side)).Inc()
		available -= cfg.Margin
		opened++
	}
	return opened
}

// flush delivers the outbox: all alerts first (best effort), then the
// ledger mutations in order. Mutation failures are logged and the
// remaining mutations still applied; the first failure is returned so
// the cycle is reported unhealthy.
func (o *Orchestrator) flush(ctx context.Context, outbox *models.CycleOutbox) error {
	if len(outbox.Alerts) > 0 {
		o.notifier.SendMessages(ctx, outbox.Alerts)
	}

	var firstErr error
	for _, mut := range outbox.Mutations {
		if err := o.applyMutation(ctx, mut); err != nil {
			o.logger.Error().Err(err).Str("ticker", mut.Ticker).Str("kind", string(mut.Kind)).
				Msg("ledger mutation failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("flushing ledger mutations: %w", firstErr)
	}
	return nil
}

func (o *Orchestrator) applyMutation(ctx context.Context, mut models.LedgerMutation) error {
	switch mut.Kind {
	case models.MutationOpen:
		if err := o.ledger.AddPosition(ctx, *mut.Position); err != nil {
			return err
		}
		return o.ledger.AddOperation(ctx, *mut.Execution)
	case models.MutationClose:
		if err := o.ledger.AddOperation(ctx, *mut.Execution); err != nil {
			return err
		}
		return o.ledger.DeletePosition(ctx, mut.Ticker)
	case models.MutationDrift:
		return o.ledger.DeletePosition(ctx, mut.Ticker)
	default:
		return fmt.Errorf("unknown mutation kind %q", mut.Kind)
	}
}

// snapshotCache fetches each instrument's snapshot at most once per
// cycle, including the error outcome.
type snapshotCache struct {
	provider marketdata.Provider
	configs  map[string]models.InstrumentConfig
	cached   map[string]*models.MarketSnapshot
	failed   map[string]error
}

func newSnapshotCache(provider marketdata.Provider, configs []models.InstrumentConfig) *snapshotCache {
	byTicker := make(map[string]models.InstrumentConfig, len(configs))
	for _, cfg := range configs {
		byTicker[cfg.Ticker] = cfg
	}
	return &snapshotCache{
		provider: provider,
		configs:  byTicker,
		cached:   make(map[string]*models.MarketSnapshot),
		failed:   make(map[string]error),
	}
}

func (c *snapshotCache) get(ctx context.Context, ticker string) (*models.MarketSnapshot, error) {
	if snap, ok := c.cached[ticker]; ok {
		return snap, nil
	}
	if err, ok := c.failed[ticker]; ok {
		return nil, err
	}
	cfg, ok := c.configs[ticker]
	if !ok {
		return nil, fmt.Errorf("no configuration for %s", ticker)
	}
	snap, err := c.provider.GetSnapshot(ctx, cfg)
	if err != nil {
		c.failed[ticker] = err
		return nil, err
	}
	c.cached[ticker] = snap
	return snap, nil
}

func failureReason(err error) string {
	var rejected *apperrors.OrderRejectedError
	switch {
	case errors.As(err, &rejected):
		return "rejected"
	case errors.Is(err, apperrors.ErrConfirmationTimeout):
		return "unconfirmed"
	default:
		return "error"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
