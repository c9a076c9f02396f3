package main

import (
	"log/slog"

	"github.com/onpairdb/onpair"
	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var seed uint64
	var threshold uint16

	cmd := &cobra.Command{
		Use:   "train <corpus> <dict-out>",
		Short: "Train a reusable dictionary on a line-delimited corpus",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args[0])
			if err != nil {
				return err
			}

			var opts []onpair.Option
			if seed != 0 {
				opts = append(opts, onpair.WithSeed(seed))
			}
			if threshold != 0 {
				opts = append(opts, onpair.WithThreshold(threshold))
			}

			model := onpair.NewModel(opts...)
			model.TrainStrings(lines)
			slog.Info("trained dictionary", "lines", len(lines), "tokens", model.TokenCount())

			archive, err := model.EncodeStrings(lines)
			if err != nil {
				return err
			}
			return writeArchive(args[1], archive)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "deterministic shuffle seed (0: non-deterministic)")
	cmd.Flags().Uint16Var(&threshold, "threshold", 0, "pair promotion threshold (0: size-derived default)")
	return cmd
}
