package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/sqllogs/internal/bootstrap"
	"github.com/vietddude/sqllogs/internal/core/config"
	"github.com/vietddude/sqllogs/internal/core/cursor"
	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/core/signing"
	"github.com/vietddude/sqllogs/internal/indexing/emitter"
	"github.com/vietddude/sqllogs/internal/indexing/metrics"
	redisclient "github.com/vietddude/sqllogs/internal/infra/redis"
	"github.com/vietddude/sqllogs/internal/infra/storage/sqlite"
	"github.com/vietddude/sqllogs/internal/infra/tableland"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

// ErrSnapshotUnavailable is returned by ResetCursor when the vault holds a
// snapshot that could not be restored.
var ErrSnapshotUnavailable = errors.New("latest snapshot could not be restored")

// Bot owns the long-lived clients of one invocation.
type Bot struct {
	cfg        *config.AppConfig
	signer     *signing.Signer
	tableland  *tableland.Client
	vault      *vault.Client
	classifier *cursor.Classifier
	notifier   Notifier
	redis      *redisclient.Client
	log        *slog.Logger
}

// NewBot creates a Bot with all dependencies initialized.
func NewBot(cfg *config.AppConfig, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	signer, err := signing.NewSigner(cfg.Signer.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init signer: %w", err)
	}

	classifier, err := cursor.NewClassifier(cfg.Classification.InternalTables, cfg.Classification.HealthbotPattern)
	if err != nil {
		return nil, err
	}

	sender, err := emitter.NewDiscordSender(cfg.Discord.Username, cfg.Discord.AvatarURL)
	if err != nil {
		return nil, err
	}
	renderer := emitter.NewRenderer(cfg.Chains, cfg.Discord.FooterIconURL)
	dispatcher := emitter.NewDispatcher(sender, renderer, cfg.Discord.Internal, cfg.Discord.External, logger)

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
	}

	return &Bot{
		cfg:        cfg,
		signer:     signer,
		tableland:  tableland.NewClient(cfg.Tableland, classifier, logger),
		vault:      vault.NewClient(cfg.Vault, logger),
		classifier: classifier,
		notifier:   dispatcher,
		redis:      redisClient,
		log:        logger,
	}, nil
}

// Run bootstraps the local state and runs one cycle. The run lock, when
// Redis is configured, covers both since bootstrap replaces the state file.
func (b *Bot) Run(ctx context.Context) (*CycleResult, error) {
	runID := uuid.NewString()
	log := b.log.With("run_id", runID)
	start := time.Now()

	defer func() {
		if err := metrics.Push(ctx, b.cfg.Metrics.PushgatewayURL, b.cfg.Metrics.Job); err != nil {
			log.Warn("Metrics push failed", "error", err)
		}
	}()

	if b.redis != nil {
		lock := b.redis.NewRunLock(b.cfg.Vault.Name, b.cfg.Redis.LockTTL)
		if err := lock.Acquire(ctx); err != nil {
			if errors.Is(err, redisclient.ErrLockHeld) {
				log.Warn("Previous run still in progress, skipping")
				metrics.CyclesTotal.WithLabelValues("skipped").Inc()
			}
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to release run lock", "error", err)
			}
		}()
	}

	if _, err := b.Bootstrap(ctx, log); err != nil {
		metrics.CyclesTotal.WithLabelValues("bootstrap_failed").Inc()
		return nil, err
	}

	db, err := sqlite.Open(ctx, b.cfg.State.Path)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	defer db.Close()

	result, err := RunCycle(ctx, &RunContext{
		RunID:      runID,
		Vault:      b.cfg.Vault.Name,
		StatePath:  db.Path(),
		Cursors:    sqlite.NewCursorRepo(db),
		Source:     b.tableland,
		Classifier: b.classifier,
		Mirror:     b.vault,
		Signer:     b.signer,
		Notifier:   b.notifier,
		Log:        log,
	})
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		log.Error("Cycle failed", "error", err)
		return nil, err
	}
	metrics.CyclesTotal.WithLabelValues("ok").Inc()

	if b.redis != nil {
		if err := b.redis.RecordRun(ctx, b.cfg.Vault.Name, runID, time.Now()); err != nil {
			log.Warn("Failed to record run", "error", err)
		}
	}
	return result, nil
}

// Bootstrap restores or creates the local state file.
func (b *Bot) Bootstrap(ctx context.Context, log *slog.Logger) (bootstrap.Result, error) {
	initializer := bootstrap.New(bootstrap.Config{
		Path:            b.cfg.State.Path,
		Vault:           b.cfg.Vault.Name,
		CacheTTLMinutes: b.cfg.Vault.CacheTTLMinutes,
		Migrate:         b.cfg.State.Migrate,
	}, b.vault, b.signer, sqlite.Init, log)
	return initializer.Run(ctx)
}

// ResetCursor overwrites one chain's cursor in the vault snapshot. The next
// run starts that chain from c.BlockNumber.
func (b *Bot) ResetCursor(ctx context.Context, c domain.Cursor) error {
	log := b.log.With("chain", c.ChainID)
	if b.redis != nil {
		lock := b.redis.NewRunLock(b.cfg.Vault.Name, b.cfg.Redis.LockTTL)
		if err := lock.Acquire(ctx); err != nil {
			return err
		}
		defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()
	}

	result, err := b.Bootstrap(ctx, log)
	if err != nil {
		return err
	}
	// A store rebuilt after a failed download would replace every other
	// chain's cursor in the vault.
	if result == bootstrap.FreshAfterFetchFailure {
		return ErrSnapshotUnavailable
	}
	db, err := sqlite.Open(ctx, b.cfg.State.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.NewCursorRepo(db).Upsert(ctx, c); err != nil {
		return err
	}
	if err := b.vault.WriteFile(ctx, b.cfg.Vault.Name, db.Path(), b.signer); err != nil {
		return fmt.Errorf("failed to mirror state: %w", err)
	}
	log.Info("Cursor reset", "block", c.BlockNumber)
	return nil
}

// Close releases the clients.
func (b *Bot) Close() error {
	if b.redis != nil {
		return b.redis.Close()
	}
	return nil
}
