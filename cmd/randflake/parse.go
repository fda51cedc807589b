package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxyafiq/randflake"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		epoch      int64
		format     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "parse <id>",
		Aliases: []string{"p"},
		Short:   "Decode an ID into timestamp, machine id and sequence",
		Long: `Decode an ID. The epoch must match the one the ID was minted with;
a foreign ID decodes to valid but meaningless fields.

Without --format the ID is tried as decimal, then base62, base58 and hex.`,
		Example: `  randflake parse 1234567890123456789
  randflake parse --format base58 BukQL2gPvMW --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("epoch") {
				epoch = a.cfg.Epoch
			}
			id, err := parseID(args[0], format)
			if err != nil {
				return err
			}

			info := newIDInfo(id, epoch)
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(out, "ID:          %s\n", id)
			fmt.Fprintf(out, "\nFields:\n")
			fmt.Fprintf(out, "  Timestamp:  %s (%d ms since Unix epoch)\n", info.Time.Format(time.RFC3339Nano), info.Timestamp)
			fmt.Fprintf(out, "  Machine ID: %d\n", info.MachineID)
			fmt.Fprintf(out, "  Sequence:   %d\n", info.Sequence)
			fmt.Fprintf(out, "\nEncodings:\n")
			fmt.Fprintf(out, "  Decimal:    %s\n", id)
			fmt.Fprintf(out, "  Base58:     %s\n", info.Base58)
			fmt.Fprintf(out, "  Base62:     %s\n", info.Base62)
			fmt.Fprintf(out, "  Hex:        %s\n", info.Hex)
			return nil
		},
	}

	cmd.Flags().Int64Var(&epoch, "epoch", randflake.DefaultEpoch, "epoch the ID was minted with, ms since the Unix epoch")
	cmd.Flags().StringVarP(&format, "format", "f", "", "input format: decimal, base58, base62, hex, binary (default: try each)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}

func newEncodeCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:     "encode <id> <format>",
		Aliases: []string{"enc", "e"},
		Short:   "Convert an ID to another encoding",
		Long: `Convert an ID to another encoding.

Formats: decimal, base58 (b58), base62 (b62), hex (x), binary (bin).`,
		Example: `  randflake encode 1234567890123456789 base62`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Format(strings.ToLower(args[1])))
			return nil
		},
	}
}

// parseID decodes s in the given format, or tries each format in turn
// when format is empty.
func parseID(s, format string) (randflake.ID, error) {
	if format != "" {
		id, err := randflake.ParseFormat(s, strings.ToLower(format))
		if err != nil {
			return 0, fmt.Errorf("unable to parse %q as %s: %w", s, format, err)
		}
		return id, nil
	}

	for _, parse := range []func(string) (randflake.ID, error){
		randflake.ParseString,
		randflake.ParseBase62,
		randflake.ParseBase58,
		randflake.ParseHex,
	} {
		if id, err := parse(s); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unable to parse ID %q", s)
}
