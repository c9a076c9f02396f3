package main

import (
	"fmt"

	"github.com/onpairdb/onpair"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var capped bool

	cmd := &cobra.Command{
		Use:   "stats <corpus>",
		Short: "Train on a corpus and report a breakdown of dictionary token usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args[0])
			if err != nil {
				return err
			}

			var offsets []uint32
			var dict []byte
			var codes []uint16
			var originalBytes int
			for _, l := range lines {
				originalBytes += len(l)
			}

			if capped {
				c := onpair.New16()
				c.CompressStrings(lines)
				offsets, dict, codes = c.TokenOffsets(), c.Dictionary(), c.Codes()
			} else {
				c := onpair.New()
				c.CompressStrings(lines)
				offsets, dict, codes = c.TokenOffsets(), c.Dictionary(), c.Codes()
			}

			reportTokenBreakdown(cmd, offsets, dict, codes, originalBytes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&capped, "capped", false, "use the 16-byte-capped dictionary variant")
	return cmd
}

// reportTokenBreakdown prints how much of the dictionary arena is spent on
// the 256 reserved single-byte tokens versus trained multi-byte tokens,
// and the resulting compression ratio.
func reportTokenBreakdown(cmd *cobra.Command, offsets []uint32, dict []byte, codes []uint16, originalBytes int) {
	out := cmd.OutOrStdout()

	multiByteTokens := 0
	multiByteSize := 0
	for i := 256; i < len(offsets)-1; i++ {
		multiByteTokens++
		multiByteSize += int(offsets[i+1] - offsets[i])
	}

	fmt.Fprintf(out, "Token breakdown:\n")
	fmt.Fprintf(out, "  Single-byte tokens (0-255): 256 tokens, 256 bytes dict\n")
	fmt.Fprintf(out, "  Multi-byte tokens (256+): %d tokens, %d bytes dict\n", multiByteTokens, multiByteSize)
	fmt.Fprintf(out, "  Total dict (incl. trailing padding): %d bytes\n\n", len(dict))

	total := len(codes)*2 + multiByteSize + multiByteTokens*4
	fmt.Fprintf(out, "Compressed size: %d bytes (codes) + %d bytes (dict) + %d bytes (offsets) = %d bytes\n",
		len(codes)*2, multiByteSize, multiByteTokens*4, total)
	if originalBytes > 0 {
		fmt.Fprintf(out, "Ratio: %.2fx\n", float64(originalBytes)/float64(total))
	}
}
