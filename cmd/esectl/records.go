package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esekit/esekit/internal/dump"
	"github.com/esekit/esekit/pkg/ese"
)

var (
	dumpMax      int
	dumpMaxBytes int
	dumpShowCols bool
)

func init() {
	cmd := newDumpCmd()
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <database> <table>",
		Short: "Dump a table's records as text or JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args[0], args[1])
		},
	}
	cmd.Flags().IntVar(&dumpMax, "max-records", 0, "Stop after this many records (0 = unlimited)")
	cmd.Flags().IntVar(&dumpMaxBytes, "max-value-bytes", 256, "Truncate binary column output to this many bytes in text output (0 = unlimited)")
	cmd.Flags().BoolVar(&dumpShowCols, "show-columns", false, "Print the table's column list before its records")
	return cmd
}

func runDump(path, table string) error {
	h, err := ese.Open(path, ese.OpenOptions{UseMmap: useMmap, Tolerant: true})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer h.Close()

	t, err := h.TableByName(table)
	if err != nil {
		return fmt.Errorf("table %q: %w", table, err)
	}

	opts := dump.Options{MaxRecords: dumpMax, MaxValueBytes: dumpMaxBytes, ShowColumns: dumpShowCols}
	if jsonOut {
		return dump.JSON(os.Stdout, t, opts)
	}
	return dump.Text(os.Stdout, t, opts)
}
