package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/sqllogs/internal/control"
	"github.com/vietddude/sqllogs/internal/core/config"
	redisclient "github.com/vietddude/sqllogs/internal/infra/redis"
)

var (
	cfgPath string
	isDebug bool
	migrate bool
)

var rootCmd = &cobra.Command{
	Use:   "sqllogs",
	Short: "Tableland SQL logs bot",
	Long:  `sqllogs polls the Tableland indexing API for new SQL events, posts them to Discord and keeps its cursors in a signed SQLite snapshot stored in a Basin vault.`,
	Run:   runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Restore the state snapshot and run one polling cycle",
	Run:   runBot,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&migrate, "migrate", false, "start from an empty cursor table instead of the vault snapshot")
	rootCmd.AddCommand(runCmd)
}

// loadConfig reads .env and the config file and installs the process logger.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
	} else {
		stylelog.InitDefault(&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}

	cfg.State.Migrate = cfg.State.Migrate || migrate
	return cfg
}

// newBot loads the config and builds a Bot, exiting on failure.
func newBot() (*config.AppConfig, *control.Bot) {
	cfg := loadConfig()
	bot, err := control.NewBot(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize bot", "error", err)
		os.Exit(1)
	}
	return cfg, bot
}

func runBot(cmd *cobra.Command, args []string) {
	cfg, bot := newBot()
	defer func() {
		_ = bot.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting cycle", "config", cfgPath, "vault", cfg.Vault.Name)

	result, err := bot.Run(ctx)
	if errors.Is(err, redisclient.ErrLockHeld) {
		return
	}
	if err != nil {
		slog.Error("Run failed", "error", err)
		stop()
		os.Exit(1)
	}

	slog.Info("Cycle finished",
		"run_id", result.RunID,
		"chains", len(result.Plan.Delta),
		"events", result.Fetched,
		"internal", len(result.Partition.Internal),
		"external", len(result.Partition.External),
	)
}
