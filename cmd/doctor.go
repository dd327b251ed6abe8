package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entraguard/entraguard/internal/doctor"
	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check local prerequisites for talking to the tenant",
	Long: `Verifies that this machine can run assess and harden:

  - Azure CLI installation and active session
  - Service principal environment variables (if used)
  - Active template set loads and validates

No changes are made to the tenant.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	output.Init(verbosity > 0, jsonOutput)

	summary := doctor.RunAll(cmd.Context(), doctor.NewRealExecutor(), templateStore())

	if jsonOutput {
		output.JSON(summary)
	} else {
		for _, r := range summary.Results {
			icon := "✅"
			switch r.Status {
			case doctor.StatusFail:
				icon = "❌"
			case doctor.StatusWarn:
				icon = "⚠️"
			case doctor.StatusSkip:
				icon = "⏭️"
			}
			fmt.Fprintf(os.Stderr, "  %s %-12s %s\n", icon, r.Name, r.Message)
			if r.Fix != "" && r.Status != doctor.StatusPass {
				fmt.Fprintf(os.Stderr, "     💡 %s\n", r.Fix)
			}
		}
		fmt.Fprintln(os.Stderr)
	}

	if summary.HasFailure {
		return exitcode.Wrap(exitcode.Generic, fmt.Errorf("%d critical check(s) failed", summary.TotalFail))
	}
	if !jsonOutput {
		color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "✅ Doctor: %d passed, %d warnings\n", summary.TotalPass, summary.TotalWarn)
	}
	return nil
}
