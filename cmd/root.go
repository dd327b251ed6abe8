// Package cmd implements the Cobra-based CLI for entraguard.
package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entraguard/entraguard/internal/exitcode"
	"github.com/entraguard/entraguard/internal/graph"
	"github.com/entraguard/entraguard/internal/graphauth"
	"github.com/entraguard/entraguard/internal/output"
	"github.com/entraguard/entraguard/internal/template"
	"github.com/entraguard/entraguard/templates"
)

var (
	tenantID     string
	templatesDir string
	outputDir    string
	verbosity    int
	dryRun       bool
	jsonOutput   bool // --json flag for machine-readable output
	assumeYes    bool
	ciMode       bool
)

// rootCmd is the top-level command for entraguard.
var rootCmd = &cobra.Command{
	Use:   "entraguard",
	Short: "Entra tenant security posture CLI",
	Long: `entraguard assesses and hardens the identity security posture of a
Microsoft Entra tenant.

assess runs read-only discovery probes against Microsoft Graph:
  - Conditional access policies
  - MFA registration and self-service password reset
  - Authentication method configuration
  - Secure score
  - Sign-in failures (last 7 days)
  - Organization branding

harden applies a declarative template baseline to the tenant, always
establishing an emergency-access account before any access-restricting
change.

Workflow: assess → validate → plan → harden`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant-id", "", "Entra tenant ID (default: detected from Azure CLI)")
	rootCmd.PersistentFlags().StringVar(&templatesDir, "templates", "", "directory of templates (default: builtin baseline)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "entraguard-reports", "output directory for snapshots and reports")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v, -vv)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "simulate actions without changing the tenant")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON (machine-readable)")
	rootCmd.PersistentFlags().BoolVar(&assumeYes, "yes", false, "skip interactive confirmation (for CI/CD)")
	rootCmd.PersistentFlags().BoolVar(&ciMode, "ci", false, "strict non-interactive mode (fails when confirmation would be needed)")

	_ = viper.BindPFlag("tenant_id", rootCmd.PersistentFlags().Lookup("tenant-id"))
	_ = viper.BindPFlag("templates", rootCmd.PersistentFlags().Lookup("templates"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

func effectiveCIMode() bool {
	if ciMode {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(os.Getenv("CI")), "true")
}

func initConfig() {
	viper.SetConfigName("entraguard")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.entraguard")
	viper.SetEnvPrefix("ENTRAGUARD")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
	if tenantID == "" {
		tenantID = viper.GetString("tenant_id")
	}
	if templatesDir == "" {
		templatesDir = viper.GetString("templates")
	}
}

// connect resolves the tenant ID and authenticates to Microsoft Graph.
func connect(ctx context.Context) (*graph.Client, error) {
	if tenantID == "" {
		detected, err := graphauth.DetectTenantID()
		if err != nil {
			return nil, exitcode.Wrap(exitcode.Auth, err)
		}
		tenantID = detected
	}

	output.Step("Authenticating to Microsoft Graph")
	cred, err := graphauth.Login(ctx, graphauth.Options{
		TenantID:    tenantID,
		Interactive: !effectiveCIMode() && !jsonOutput,
		Verbose:     verbosity > 0,
	})
	if err != nil {
		return nil, exitcode.Wrap(exitcode.Auth, err)
	}
	output.Debug("authenticated", "method", cred.Method, "tenant", cred.TenantID)
	return graph.NewClient(graph.NewHTTPAPI(cred.TokenCredential)), nil
}

// templateStore picks the builtin baseline or a user directory.
func templateStore() *template.Store {
	if templatesDir != "" {
		return template.NewDirStore(templatesDir)
	}
	return templates.Builtin()
}
