package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esekit/esekit/pkg/ese"
)

func init() {
	rootCmd.AddCommand(newTablesCmd())
	rootCmd.AddCommand(newColumnsCmd())
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <database>",
		Short: "List every table and its resolved record count, concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(args[0])
		},
	}
}

func runTables(path string) error {
	h, err := ese.Open(path, ese.OpenOptions{UseMmap: useMmap})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer h.Close()

	summaries, err := h.AllTableSummaries()
	if err != nil {
		return fmt.Errorf("summarize tables: %w", err)
	}

	if jsonOut {
		return printJSON(summaries)
	}

	for _, s := range summaries {
		if s.Err != nil {
			printInfo("%-32s id=%-6d <error: %v>\n", s.Name, s.ID, s.Err)
			continue
		}
		printInfo("%-32s id=%-6d records=%d\n", s.Name, s.ID, s.Count)
	}
	return nil
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <database> <table>",
		Short: "List a table's columns, their types, and codepages",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(args[0], args[1])
		},
	}
}

func runColumns(path, table string) error {
	h, err := ese.Open(path, ese.OpenOptions{UseMmap: useMmap})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer h.Close()

	t, err := h.TableByName(table)
	if err != nil {
		return fmt.Errorf("table %q: %w", table, err)
	}

	cols := t.Columns()
	if jsonOut {
		return printJSON(cols)
	}
	for _, c := range cols {
		printInfo("%-32s id=%-4d type=%-20s codepage=%d\n", c.Name, c.ID, c.Type, c.Codepage)
	}
	return nil
}
