package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
	"github.com/entraguard/entraguard/internal/report"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Discover the tenant's security posture and produce a report",
	Long: `Connects to Microsoft Graph and runs the read-only discovery probes:
  - Conditional access policies
  - MFA registration and self-service password reset status
  - Authentication method configuration
  - Secure score
  - Sign-in failures over the last 7 days
  - Organization branding

A probe failure (missing permission, throttling) degrades only its own
section; every other probe still runs. The run writes two files into the
output directory: a JSON snapshot export and a Markdown report.

Examples:
  entraguard assess
  entraguard assess --json
  entraguard assess --output posture/ --tenant-id <guid>`,
	RunE: runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	output.Init(verbosity > 0, jsonOutput)
	ctx := cmd.Context()

	client, err := connect(ctx)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Fprintf(os.Stderr, "🔍 Assessing tenant: %s\n\n", tenantID)

	collector := discovery.NewCollector(client)
	var snapshot *discovery.TenantSnapshot
	if err := output.WithSpinner("Running discovery probes", func() error {
		var collectErr error
		snapshot, collectErr = collector.Collect(ctx)
		return collectErr
	}); err != nil {
		return exitcode.Wrap(exitcode.Fatal, fmt.Errorf("discovery cancelled: %w", err))
	}

	doc := report.Synthesize(snapshot)

	snapshotPath, reportPath, err := report.WriteFiles(outputDir, snapshot, doc, time.Now())
	if err != nil {
		return err
	}

	failed := snapshot.FailedProbes()

	if jsonOutput {
		// Both output forms derive from the same document: the envelope
		// embeds the exact bytes RenderJSON produces.
		rendered, err := report.RenderJSON(doc)
		if err != nil {
			return err
		}
		output.JSON(map[string]interface{}{
			"tenant":       tenantID,
			"snapshot":     snapshotPath,
			"report":       reportPath,
			"failedProbes": failed,
			"document":     json.RawMessage(rendered),
		})
	} else {
		fmt.Fprint(os.Stderr, report.RenderMarkdown(doc))
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "📄 Snapshot: %s\n", snapshotPath)
		fmt.Fprintf(os.Stderr, "📄 Report:   %s\n", reportPath)
	}

	if len(failed) > 0 {
		for _, name := range failed {
			output.Warn("probe degraded", "probe", name)
		}
		return exitcode.Wrap(exitcode.Degraded, fmt.Errorf("%d of 7 probes did not complete", len(failed)))
	}

	if !jsonOutput {
		color.New(color.FgGreen, color.Bold).Fprintln(os.Stderr, "✅ Assessment complete.")
		fmt.Fprintln(os.Stderr, "   Next: entraguard plan  to see what harden would change")
	}
	return nil
}
