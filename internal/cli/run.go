package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"okx-trader/internal/marketdata"
	"okx-trader/internal/metrics"
	"okx-trader/internal/notify"
	"okx-trader/internal/resilience"
	"okx-trader/internal/trading"
	"okx-trader/pkg/utils"
)

func newRunCmd(app *App) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the trading loop",
		Long: `Start the evaluation loop. Every cycle the bot reconciles the ledger
against the exchange, evaluates close levels on open positions and
entry signals on idle instruments, then sleeps until the next aligned
tick. Stop with SIGINT or SIGTERM; in-flight orders are confirmed
before the process exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("ledger database unavailable")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runLoop(ctx, app, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")
	return cmd
}

func runLoop(ctx context.Context, app *App, once bool) error {
	cfg := app.Config
	logger := app.Logger

	client := app.exchangeClient()

	var notifier notify.Notifier
	if cfg.Notifications.Enabled {
		notifier = notify.NewTelegramNotifier(cfg.Notifications, logger)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	orchestrator := trading.NewOrchestrator(trading.OrchestratorConfig{
		Client:         client,
		Ledger:         app.Store,
		Notifier:       notifier,
		Provider:       marketdata.NewExchangeProvider(client, cfg.Trading.CandleLimit),
		Orders:         trading.NewOrderManager(client, logger, cfg.Trading.ConfirmDelay),
		Logger:         logger,
		InstType:       cfg.Trading.InstType,
		Currency:       cfg.Trading.Currency,
		BalanceHaircut: cfg.Trading.BalanceHaircut,
	})

	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Addr)
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint started")
	}

	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())

	logger.Info().
		Str("mode", cfg.Trading.Mode).
		Dur("interval", cfg.Trading.CycleInterval).
		Msg("trading loop started")

	for {
		if !breaker.Allow() {
			metrics.Cycles.WithLabelValues("suppressed").Inc()
			logger.Warn().Msg("cycle suppressed, exchange circuit open")
		} else if err := orchestrator.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			breaker.RecordFailure()
			metrics.Cycles.WithLabelValues("error").Inc()
			logger.Error().Err(err).Msg("cycle failed")
			notifier.SendMessages(ctx, []string{fmt.Sprintf("Cycle failed: %v", err)})
		} else {
			breaker.RecordSuccess()
			metrics.Cycles.WithLabelValues("ok").Inc()
		}

		if once {
			return nil
		}
		if err := utils.SleepUntilNextTick(ctx, cfg.Trading.CycleInterval); err != nil {
			break
		}
	}

	logger.Info().Msg("trading loop stopped")
	return nil
}
