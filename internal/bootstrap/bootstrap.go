// Package bootstrap establishes the local cursor file before the first cycle:
// restored from the latest vault snapshot when possible, fresh otherwise.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/metrics"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

// Result records which path bootstrap took.
type Result string

const (
	Restored               Result = "restored"
	Fresh                  Result = "fresh"
	FreshAfterFetchFailure Result = "fresh_after_fetch_failure"
	FreshMigration         Result = "fresh_migration"
)

// VaultAPI is the part of the vault client bootstrap needs.
type VaultAPI interface {
	VaultExists(ctx context.Context, name, account string) (bool, error)
	CreateVault(ctx context.Context, name, account string, cacheTTL *int) error
	ListEvents(ctx context.Context, vault string, q vault.EventQuery) ([]vault.Event, error)
	FetchEvent(ctx context.Context, cid, dst string) error
}

// AddressSource yields the account that owns the vault.
type AddressSource interface {
	Address() string
}

// StoreInitializer creates an empty cursor file at path.
type StoreInitializer func(ctx context.Context, path string) error

// Config holds bootstrap settings.
type Config struct {
	Path            string
	Vault           string
	CacheTTLMinutes int
	// Migrate skips the restore and starts from an empty cursor table.
	Migrate bool
}

// Initializer runs the bootstrap sequence.
type Initializer struct {
	cfg       Config
	vault     VaultAPI
	signer    AddressSource
	initStore StoreInitializer
	log       *slog.Logger
}

// New creates an Initializer.
func New(cfg Config, v VaultAPI, signer AddressSource, initStore StoreInitializer, logger *slog.Logger) *Initializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{cfg: cfg, vault: v, signer: signer, initStore: initStore, log: logger}
}

// Run prepares the local cursor file. The local copy is only a cache of the
// vault, so any leftover file from an earlier run is discarded first. A failed
// snapshot download falls back to a fresh store; only a missing file at the
// end is fatal.
func (b *Initializer) Run(ctx context.Context) (Result, error) {
	path := b.cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: create state directory: %v", domain.ErrBootstrap, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: remove stale state: %v", domain.ErrBootstrap, err)
	}

	account := b.signer.Address()
	exists, err := b.vault.VaultExists(ctx, b.cfg.Vault, account)
	if err != nil {
		return "", fmt.Errorf("failed to check vault: %w", err)
	}
	if !exists {
		var ttl *int
		if b.cfg.CacheTTLMinutes > 0 {
			ttl = &b.cfg.CacheTTLMinutes
		}
		if err := b.vault.CreateVault(ctx, b.cfg.Vault, account, ttl); err != nil {
			return "", fmt.Errorf("failed to create vault: %w", err)
		}
	}

	result, err := b.restoreOrInit(ctx, path)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		metrics.BootstrapTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: state file missing after bootstrap: %v", domain.ErrBootstrap, err)
	}

	metrics.BootstrapTotal.WithLabelValues(string(result)).Inc()
	b.log.Info("State ready", "path", path, "vault", b.cfg.Vault, "result", result)
	return result, nil
}

func (b *Initializer) restoreOrInit(ctx context.Context, path string) (Result, error) {
	if b.cfg.Migrate {
		b.log.Warn("Migration requested, starting from an empty cursor table")
		return FreshMigration, b.fresh(ctx, path)
	}

	events, err := b.vault.ListEvents(ctx, b.cfg.Vault, vault.Latest(1))
	if err != nil {
		return "", fmt.Errorf("failed to list vault events: %w", err)
	}
	if len(events) == 0 {
		b.log.Info("Vault has no snapshots, starting fresh", "vault", b.cfg.Vault)
		return Fresh, b.fresh(ctx, path)
	}

	cid := events[0].CID
	if err := b.vault.FetchEvent(ctx, cid, path); err != nil {
		b.log.Warn("Snapshot download failed, starting fresh", "cid", cid, "error", err)
		return FreshAfterFetchFailure, b.fresh(ctx, path)
	}

	b.log.Info("Snapshot restored", "cid", cid)
	return Restored, nil
}

func (b *Initializer) fresh(ctx context.Context, path string) error {
	if err := b.initStore(ctx, path); err != nil {
		return fmt.Errorf("%w: init state: %v", domain.ErrBootstrap, err)
	}
	return nil
}
