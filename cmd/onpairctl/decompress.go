package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/onpairdb/onpair"
	"github.com/spf13/cobra"
)

func newDecompressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompress <archive>",
		Short: "Decompress every string in an archive, one per line, to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := readArchive(args[0])
			if err != nil {
				return err
			}

			// DecodeStringChecked rejects a too-small buffer instead of
			// writing past it; grow and retry rather than guess a bound
			// from the dictionary size, which is unrelated to a single
			// decoded string's length.
			buf := make([]byte, 4096)
			for i := 0; i < len(archive.Bounds)-1; i++ {
				n, err := onpair.DecodeStringChecked(archive, i, buf)
				for errors.Is(err, onpair.ErrShortBuffer) {
					buf = make([]byte, len(buf)*2)
					n, err = onpair.DecodeStringChecked(archive, i, buf)
				}
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(os.Stdout, string(buf[:n])); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
