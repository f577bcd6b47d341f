package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"okx-trader/internal/config"
	"okx-trader/internal/exchange"
	"okx-trader/internal/logging"
	"okx-trader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.Store
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to open ledger database")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Database.Path).Msg("ledger database opened")
	}

	rootCmd := &cobra.Command{
		Use:   "okx-trader",
		Short: "OKX perpetual swap trading bot",
		Long: `okx-trader is an automated perpetual-swap trading bot for OKX.

It evaluates ADX, RSI and EMA-cross signals on confirmed candles, opens
and closes positions with market orders, and keeps a local SQLite
ledger reconciled against the exchange's position list.

Use 'okx-trader run' to start the trading loop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/okx-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newParamsCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))

	return rootCmd
}

// exchangeClient builds the exchange client for the configured mode.
// Paper mode wraps the REST client so metadata and candles stay real
// while balance, positions and fills are simulated.
func (a *App) exchangeClient() exchange.Client {
	okx := exchange.NewOKXClient(exchange.OKXConfig{
		APIKey:     a.Config.Credentials.OKX.APIKey,
		APISecret:  a.Config.Credentials.OKX.APISecret,
		Passphrase: a.Config.Credentials.OKX.Passphrase,
		Demo:       a.Config.Credentials.OKX.Demo,
	})
	if a.Config.Trading.Mode == "paper" {
		return exchange.NewPaperClient(exchange.PaperConfig{DataClient: okx})
	}
	return okx
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("okx-trader v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:            %s\n", cfg.Trading.Mode)
	output.Printf("  Instrument Type: %s\n", cfg.Trading.InstType)
	output.Printf("  Currency:        %s\n", cfg.Trading.Currency)
	output.Printf("  Balance Haircut: %.2f\n", cfg.Trading.BalanceHaircut)
	output.Printf("  Cycle Interval:  %s\n", cfg.Trading.CycleInterval)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Chat IDs:        %d\n", len(cfg.Notifications.ChatIDs))
	output.Println()

	output.Bold("Metrics")
	output.Printf("  Enabled:         %v\n", cfg.Metrics.Enabled)
	output.Printf("  Address:         %s\n", cfg.Metrics.Addr)
	output.Println()

	output.Bold("Database")
	output.Printf("  Path:            %s\n", cfg.Database.Path)
	return nil
}
