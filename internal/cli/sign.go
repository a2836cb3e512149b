package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/sqllogs/internal/core/signing"
)

var signCmd = &cobra.Command{
	Use:   "sign [file]",
	Short: "Print the hex signature the bot would attach to a file",
	Args:  cobra.ExactArgs(1),
	Run:   runSign,
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the account address derived from the signer key",
	Run:   runAddress,
}

func init() {
	rootCmd.AddCommand(signCmd, addressCmd)
}

func newSigner() *signing.Signer {
	cfg := loadConfig()
	signer, err := signing.NewSigner(cfg.Signer.PrivateKey)
	if err != nil {
		slog.Error("Failed to init signer", "error", err)
		os.Exit(1)
	}
	return signer
}

func runSign(cmd *cobra.Command, args []string) {
	sig, err := newSigner().SignFile(args[0])
	if err != nil {
		slog.Error("Failed to sign file", "file", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Println(signing.EncodeSignature(sig))
}

func runAddress(cmd *cobra.Command, args []string) {
	fmt.Println(newSigner().Address())
}
