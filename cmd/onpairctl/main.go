// Command onpairctl trains, compresses, decompresses, and inspects onpair
// dictionaries from the command line.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cobra.EnableCommandSorting = false

	if err := newCLI().ExecuteContext(context.Background()); err != nil {
		slog.Error("onpairctl failed", "error", err)
		os.Exit(1)
	}
}

func newCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "onpairctl",
		Short: "Train and inspect onpair dictionaries over line-delimited corpora",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
	}

	rootCmd.AddCommand(
		newTrainCmd(),
		newCompressCmd(),
		newDecompressCmd(),
		newStatsCmd(),
	)

	return rootCmd
}
