package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esekit/esekit/pkg/ese"
)

func init() {
	rootCmd.AddCommand(newDiagnoseCmd())
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <database>",
		Short: "Walk every page independent of normal traversal and report corruption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(args[0])
		},
	}
}

func runDiagnose(path string) error {
	h, err := ese.Open(path, ese.OpenOptions{UseMmap: useMmap, CollectDiagnostics: true})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer h.Close()

	entries := h.Diagnose()
	if jsonOut {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		printInfo("no corruption detected\n")
		return nil
	}
	for _, e := range entries {
		printInfo("page=%d kind=%s error=%v\n", e.Page, e.Kind, e.Err)
	}
	return nil
}
