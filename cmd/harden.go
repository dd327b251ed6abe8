package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
	"github.com/entraguard/entraguard/internal/reconcile"
)

var hardenCmd = &cobra.Command{
	Use:   "harden",
	Short: "Apply the template baseline to the tenant",
	Long: `Reconciles the tenant against the active template set.

The run is idempotent: resources that already match the baseline are
reported as already existing, not modified. The emergency-access account
is established before any access-restricting change, and its object ID is
injected into the exclusion set of every such change.

If this run creates the emergency account, its generated password is
printed ONCE and never written to disk. Store it in a safe immediately.

Use --yes to skip the interactive confirmation (required with --ci).

Examples:
  entraguard harden
  entraguard harden --dry-run
  entraguard harden --yes --templates ./my-baseline/`,
	RunE: runHarden,
}

func init() {
	rootCmd.AddCommand(hardenCmd)
}

func runHarden(cmd *cobra.Command, args []string) error {
	output.Init(verbosity > 0, jsonOutput)
	ctx := cmd.Context()

	if effectiveCIMode() && !assumeYes && !dryRun {
		return exitcode.Wrap(exitcode.Validation, fmt.Errorf("--ci mode requires --yes for harden"))
	}

	loaded, err := templateStore().LoadAll()
	if err != nil {
		return exitcode.Wrap(exitcode.Validation, err)
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}

	collector := discovery.NewCollector(client)
	var snapshot *discovery.TenantSnapshot
	if err := output.WithSpinner("Running discovery probes", func() error {
		var collectErr error
		snapshot, collectErr = collector.Collect(ctx)
		return collectErr
	}); err != nil {
		return exitcode.Wrap(exitcode.Fatal, fmt.Errorf("discovery cancelled: %w", err))
	}

	plan, err := reconcile.NewPlan(snapshot, loaded)
	if err != nil {
		return exitcode.Wrap(exitcode.Fatal, err)
	}

	if !jsonOutput {
		printPlan(plan)
		fmt.Fprintln(os.Stderr)
	}

	if dryRun {
		if jsonOutput {
			output.JSON(plan)
		} else {
			color.New(color.FgYellow, color.Bold).Fprintln(os.Stderr, "⚡ [DRY-RUN] No changes were applied.")
		}
		return nil
	}

	if !assumeYes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Apply %d steps to tenant %s?", len(plan.Steps), plan.Organization.PrimaryDomain),
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(os.Stderr, "\n❌ Harden canceled.")
			return nil
		}
		fmt.Fprintln(os.Stderr)
	}

	result := reconcile.New(client).Apply(ctx, plan)

	if jsonOutput {
		output.JSON(result)
	} else {
		printResult(result)
	}

	// The generated password exists only in this process. Show it exactly
	// once, on the terminal, never in JSON output or on disk.
	if result.Emergency.Created {
		printEmergencyPassword(result)
	}

	if !result.Established() {
		return exitcode.Wrap(exitcode.Fatal, fmt.Errorf("emergency access account not established; %d access-restricting step(s) skipped", result.SkippedCount()))
	}
	if result.FailedCount() > 0 {
		return exitcode.Wrap(exitcode.Degraded, fmt.Errorf("%d step(s) failed, %d skipped", result.FailedCount(), result.SkippedCount()))
	}
	if !jsonOutput {
		color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "✅ Harden complete: %d created, %d already in place\n",
			result.CreatedCount(), len(result.Steps)-result.CreatedCount()-result.FailedCount()-result.SkippedCount())
	}
	return nil
}

func printResult(result *reconcile.Result) {
	for _, step := range result.Steps {
		var icon string
		switch step.Outcome {
		case reconcile.OutcomeCreated:
			icon = "✅"
		case reconcile.OutcomeAlreadyExists:
			icon = "🔁"
		case reconcile.OutcomeSkipped:
			icon = "⏭️"
		default:
			icon = "❌"
		}
		fmt.Fprintf(os.Stderr, "  %s %-45s %s", icon, step.StepID, step.Outcome)
		if step.Message != "" {
			fmt.Fprintf(os.Stderr, "  (%s)", step.Message)
		}
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintln(os.Stderr)
}

func printEmergencyPassword(result *reconcile.Result) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintln(os.Stderr, "⚠️  Emergency access account created")
	fmt.Fprintf(os.Stderr, "   Account:  %s\n", result.Emergency.UserPrincipalName)
	fmt.Fprintf(os.Stderr, "   Password: %s\n", result.Emergency.Password)
	yellow.Fprintln(os.Stderr, "   This password is shown ONCE and is not stored anywhere.")
	yellow.Fprintln(os.Stderr, "   Record it in a physical safe or offline vault now.")
}
