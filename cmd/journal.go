package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entraguard/entraguard/internal/audit"
	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent entraguard runs from the local audit journal",
	Long: `Lists invocations recorded in ~/.entraguard/audit.log: operation,
tenant, result, exit code and duration. The journal never contains
passwords or tokens.

Examples:
  entraguard journal
  entraguard journal --limit 5
  entraguard journal --json`,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "maximum number of entries to show (newest last)")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	output.Init(verbosity > 0, jsonOutput)

	events, err := audit.ReadJournal()
	if err != nil {
		return exitcode.Wrap(exitcode.Generic, fmt.Errorf("reading audit journal: %w", err))
	}
	if journalLimit > 0 && len(events) > journalLimit {
		events = events[len(events)-journalLimit:]
	}

	if jsonOutput {
		output.JSON(map[string]interface{}{"events": events})
		return nil
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s  %-10s %-8s exit=%d  %dms", e.Timestamp, e.Operation, e.Result, e.ExitCode, e.DurationMs)
		if e.Tenant != "" {
			fmt.Fprintf(out, "  tenant=%s", e.Tenant)
		}
		fmt.Fprintln(out)
	}
	return nil
}
