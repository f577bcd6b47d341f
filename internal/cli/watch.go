package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"okx-trader/internal/exchange"
)

func newWatchCmd(app *App) *cobra.Command {
	var wsURL string

	cmd := &cobra.Command{
		Use:   "watch TICKER...",
		Short: "Stream live prices for instruments",
		Long: `Subscribe to the public tickers channel and print last-price
updates as they arrive. This is a monitoring view only and does not
affect the trading loop.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			output := NewOutput(cmd)
			ticker := exchange.NewTicker(wsURL)
			if err := ticker.Connect(ctx, args); err != nil {
				return fmt.Errorf("connecting ticker stream: %w", err)
			}
			defer ticker.Close()

			output.Info("Streaming %d instruments, press Ctrl+C to stop", len(args))
			err := ticker.Stream(ctx, func(u exchange.TickerUpdate) {
				if output.IsJSON() {
					output.JSON(map[string]interface{}{
						"inst_id": u.InstID,
						"last":    u.Last,
						"ts":      u.Timestamp,
					})
					return
				}
				output.Printf("%s  %-16s %v\n", u.Timestamp.Format("15:04:05"), u.InstID, u.Last)
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&wsURL, "ws-url", "", "override the public websocket URL")
	return cmd
}
