package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
	"github.com/entraguard/entraguard/internal/reconcile"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the ordered steps harden would apply",
	Long: `Builds the reconciliation plan for the active template set without
writing anything to the tenant.

The plan always starts with the emergency-access account step; every
access-restricting step depends on it and carries its exclusion set.

Examples:
  entraguard plan
  entraguard plan --json
  entraguard plan --templates ./my-baseline/`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	output.Init(verbosity > 0, jsonOutput)
	ctx := cmd.Context()

	loaded, err := templateStore().LoadAll()
	if err != nil {
		return exitcode.Wrap(exitcode.Validation, err)
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}

	collector := discovery.NewCollector(client)
	snapshot, collectErr := collector.Collect(ctx)
	if collectErr != nil {
		return exitcode.Wrap(exitcode.Fatal, fmt.Errorf("discovery cancelled: %w", collectErr))
	}

	plan, err := reconcile.NewPlan(snapshot, loaded)
	if err != nil {
		return exitcode.Wrap(exitcode.Fatal, err)
	}

	if jsonOutput {
		output.JSON(plan)
		return nil
	}

	printPlan(plan)
	fmt.Fprintln(os.Stderr)
	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "✅ Plan: %d steps\n", len(plan.Steps))
	fmt.Fprintln(os.Stderr, "   Next: entraguard harden  to apply")
	return nil
}

func printPlan(plan *reconcile.Plan) {
	bold := color.New(color.Bold)
	bold.Fprintf(os.Stderr, "📋 Plan for %s (%s)\n", plan.Organization.DisplayName, plan.Organization.PrimaryDomain)
	fmt.Fprintf(os.Stderr, "   Emergency account: %s\n\n", plan.EmergencyUPN)

	for i, step := range plan.Steps {
		marker := "  "
		if step.AccessRestricting {
			marker = "🔒"
		}
		fmt.Fprintf(os.Stderr, "  %d. %s %s", i+1, marker, step.ID)
		if len(step.DependsOn) > 0 {
			fmt.Fprintf(os.Stderr, "  (after %s)", strings.Join(step.DependsOn, ", "))
		}
		fmt.Fprintln(os.Stderr)
	}
}
