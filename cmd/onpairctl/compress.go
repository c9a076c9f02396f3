package main

import (
	"log/slog"

	"github.com/onpairdb/onpair"
	"github.com/spf13/cobra"
)

func newCompressCmd() *cobra.Command {
	var seed uint64
	var threshold uint16
	var capped bool

	cmd := &cobra.Command{
		Use:   "compress <corpus> <archive-out>",
		Short: "Train and compress a line-delimited corpus into an archive",
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

			var archive *archiveView
			if capped {
				c := onpair.New16(opts...)
				c.CompressStrings(lines)
				archive = fromCapped(c)
				slog.Info("compressed corpus", "variant", "capped", "lines", len(lines), "tokens", c.TokenCount(), "bytes", c.SpaceUsed())
			} else {
				c := onpair.New(opts...)
				c.CompressStrings(lines)
				archive = fromUnbounded(c)
				slog.Info("compressed corpus", "variant", "unbounded", "lines", len(lines), "tokens", c.TokenCount(), "bytes", c.SpaceUsed())
			}

			return writeArchive(args[1], archive.toArchive())
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "deterministic shuffle seed (0: non-deterministic)")
	cmd.Flags().Uint16Var(&threshold, "threshold", 0, "pair promotion threshold (0: size-derived default)")
	cmd.Flags().BoolVar(&capped, "capped", false, "use the 16-byte-capped dictionary variant")
	return cmd
}
