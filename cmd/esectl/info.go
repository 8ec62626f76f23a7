package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/esekit/esekit/pkg/ese"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <database>",
		Short: "Report the file header and table count of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

func runInfo(path string) error {
	printVerbose("opening %s\n", path)
	h, err := ese.Open(path, ese.OpenOptions{UseMmap: useMmap})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer h.Close()

	tables, err := h.Tables()
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	info := struct {
		File   string `json:"file"`
		Size   string `json:"size"`
		Tables int    `json:"tables"`
	}{File: path, Tables: len(tables)}

	if stat, err := os.Stat(path); err == nil {
		info.Size = humanize.Bytes(uint64(stat.Size()))
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("File:   %s\n", info.File)
	printInfo("Size:   %s\n", info.Size)
	printInfo("Tables: %s\n", humanize.Comma(int64(info.Tables)))
	return nil
}
