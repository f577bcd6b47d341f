package cli

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"okx-trader/internal/models"
)

func newParamsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Manage instrument trading parameters",
		Long: `List and edit the per-instrument strategy parameters stored in the
ledger. Contract metadata (ctVal, minSz, lotSz) is not stored here; it
is fetched from the exchange at the start of every cycle.`,
	}

	cmd.AddCommand(newParamsListCmd(app))
	cmd.AddCommand(newParamsSetCmd(app))
	return cmd
}

func newParamsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("ledger database unavailable")
			}
			params, err := app.Store.ReadParameters(cmd.Context())
			if err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(params)
			}
			if len(params) == 0 {
				output.Dim("No instruments configured. Use 'okx-trader params set' to add one.")
				return nil
			}
			table := NewTable(output, "TICKER", "TF", "ADX", "RSI", "EMA", "MARGIN", "LEV", "TP", "SL")
			for _, p := range params {
				table.AddRow(
					p.Ticker,
					p.Timeframe,
					fmt.Sprintf("%.1f", p.ADXThreshold),
					fmt.Sprintf("%.1f", p.RSIThreshold),
					fmt.Sprintf("%d/%d", p.EMAFast, p.EMASlow),
					fmt.Sprintf("%.2f", p.Margin),
					fmt.Sprintf("%.0fx", p.Leverage),
					fmt.Sprintf("%.2f%%", p.TakeProfit*100),
					fmt.Sprintf("%.2f%%", p.StopLoss*100),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newParamsSetCmd(app *App) *cobra.Command {
	cfg := models.InstrumentConfig{}

	cmd := &cobra.Command{
		Use:   "set TICKER",
		Short: "Add or update an instrument's parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("ledger database unavailable")
			}
			cfg.Ticker = args[0]

			// Contract metadata is merged in per cycle, so only the
			// strategy fields are checked here.
			validate := validator.New()
			if err := validate.StructPartial(cfg,
				"Ticker", "Timeframe", "ADXThreshold", "RSIThreshold",
				"EMAFast", "EMASlow", "Margin", "Leverage", "TakeProfit", "StopLoss",
			); err != nil {
				return fmt.Errorf("invalid parameters: %w", err)
			}

			if err := app.Store.UpsertParameter(cmd.Context(), cfg); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			output.Success("Saved parameters for %s", cfg.Ticker)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Timeframe, "timeframe", "15m", "candle timeframe (OKX bar value)")
	cmd.Flags().Float64Var(&cfg.ADXThreshold, "adx", 25, "ADX trend threshold")
	cmd.Flags().Float64Var(&cfg.RSIThreshold, "rsi", 50, "RSI mean-reversion threshold")
	cmd.Flags().IntVar(&cfg.EMAFast, "ema-fast", 12, "fast EMA window")
	cmd.Flags().IntVar(&cfg.EMASlow, "ema-slow", 26, "slow EMA window")
	cmd.Flags().Float64Var(&cfg.Margin, "margin", 0, "margin per position in settlement currency")
	cmd.Flags().Float64Var(&cfg.Leverage, "leverage", 1, "position leverage")
	cmd.Flags().Float64Var(&cfg.TakeProfit, "tp", 0, "take-profit fraction of entry price")
	cmd.Flags().Float64Var(&cfg.StopLoss, "sl", 0, "stop-loss fraction of entry price")
	cmd.MarkFlagRequired("margin")
	cmd.MarkFlagRequired("tp")
	cmd.MarkFlagRequired("sl")

	return cmd
}
