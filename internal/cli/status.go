package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/sqllogs/internal/core/domain"
	redisclient "github.com/vietddude/sqllogs/internal/infra/redis"
	"github.com/vietddude/sqllogs/internal/infra/storage/sqlite"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cursors in the local state file",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if _, err := os.Stat(cfg.State.Path); err != nil {
		slog.Error("No local state file, run the bot first", "path", cfg.State.Path)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.State.Path)
	if err != nil {
		slog.Error("Failed to open state", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	cursors, err := sqlite.NewCursorRepo(db).List(ctx)
	if err != nil {
		slog.Error("Failed to list cursors", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tNAME\tBLOCK\tTIMESTAMP")
	for _, c := range cursors {
		name, ok := cfg.Chains[c.ChainID]
		if !ok {
			name = domain.ChainName(c.ChainID)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.ChainID, name, c.BlockNumber,
			time.Unix(c.Timestamp, 0).UTC().Format(time.RFC3339))
	}
	_ = w.Flush()

	if !cfg.Redis.Enabled() {
		return
	}
	rc, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable", "error", err)
		return
	}
	defer func() {
		_ = rc.Close()
	}()

	runID, at, found, err := rc.LastRun(ctx, cfg.Vault.Name)
	switch {
	case err != nil:
		slog.Warn("Failed to read last run", "error", err)
	case found:
		fmt.Printf("\nLast run %s at %s\n", runID, at.UTC().Format(time.RFC3339))
	}
}
