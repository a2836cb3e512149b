package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/sqllogs/internal/core/domain"
)

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [chain_id] [block_number]",
	Short: "Reset the cursor for a chain in the vault snapshot",
	Long: `Restores the latest snapshot, overwrites the cursor of one chain and writes
the result back to the vault. The next run reports events after the given block.`,
	Args: cobra.ExactArgs(2),
	Run:  runResetCursor,
}

func init() {
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) {
	chainID, err := domain.ParseChainID(args[0])
	if err != nil {
		fmt.Printf("Invalid chain id: %v\n", err)
		os.Exit(1)
	}
	block, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fmt.Printf("Invalid block number: %s\n", args[1])
		os.Exit(1)
	}

	_, bot := newBot()
	defer func() {
		_ = bot.Close()
	}()

	c := domain.Cursor{ChainID: chainID, BlockNumber: block, Timestamp: time.Now().Unix()}
	if err := bot.ResetCursor(context.Background(), c); err != nil {
		slog.Error("Failed to reset cursor", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset cursor for %d to block %d\n", chainID, block)
}
