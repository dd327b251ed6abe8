package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/output"
	"github.com/entraguard/entraguard/internal/template"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the template set without touching the tenant",
	Long: `Runs the full validation suite over the active template set:

  1. JSON Schema validation of each template document
  2. Typed cross-checks (category settings, target placeholders)

All problems in a document are reported at once. Used in CI as the first
gate before plan and harden. Requires no credentials.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	_ = cmd
	output.Init(verbosity > 0, jsonOutput)

	source := "builtin"
	if templatesDir != "" {
		source = templatesDir
	}

	store := templateStore()
	names, err := store.Names()
	if err != nil {
		return exitcode.Wrap(exitcode.Validation, fmt.Errorf("loading templates from %s: %w", source, err))
	}

	// Every document is checked so the user sees all problems in one run.
	var loaded []*template.Template
	var verrs template.ValidationErrors
	for _, name := range names {
		t, loadErr := store.Load(name)
		if loadErr == nil {
			loaded = append(loaded, t)
			continue
		}
		var docErrs template.ValidationErrors
		if errors.As(loadErr, &docErrs) {
			verrs = append(verrs, docErrs...)
			continue
		}
		return exitcode.Wrap(exitcode.Validation, fmt.Errorf("loading template %s: %w", name, loadErr))
	}

	if jsonOutput {
		names := make([]string, 0, len(loaded))
		for _, t := range loaded {
			names = append(names, t.Metadata.Name)
		}
		output.JSON(map[string]interface{}{
			"source":    source,
			"templates": names,
			"errors":    verrs,
		})
	} else {
		fmt.Fprintf(os.Stderr, "🔎 Validating templates: %s\n\n", source)
		for _, t := range loaded {
			fmt.Fprintf(os.Stderr, "  ✅ %s (%s)\n", t.Metadata.Name, t.Metadata.Category)
		}
		for _, e := range verrs {
			fmt.Fprintf(os.Stderr, "  ❌ %s: %s: %s\n", e.Template, e.Field, e.Description)
		}
		fmt.Fprintln(os.Stderr)
	}

	if len(verrs) > 0 {
		return exitcode.Wrap(exitcode.Validation, fmt.Errorf("%d validation error(s) found", len(verrs)))
	}

	if !jsonOutput {
		color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "✅ Validation passed (%d templates)\n", len(loaded))
	}
	return nil
}
