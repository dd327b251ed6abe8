// Package graphauth manages Microsoft Graph authentication for entraguard.
//
// Authentication strategy (in order):
//  1. Environment variables (AZURE_CLIENT_ID + AZURE_CLIENT_SECRET + AZURE_TENANT_ID)
//  2. Azure CLI session (az login)
//  3. Interactive browser login (opens a popup)
//
// The credential is cached for the duration of the CLI invocation.
package graphauth

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/fatih/color"

	"github.com/entraguard/entraguard/internal/graph"
)

// Credential holds a resolved Graph credential and the tenant it targets.
type Credential struct {
	TokenCredential azcore.TokenCredential
	TenantID        string
	Method          string // "environment", "cli", "browser"
}

// Options configures the authentication flow.
type Options struct {
	TenantID    string // Entra tenant ID, required
	Interactive bool   // allow browser popup if other methods fail
	Verbose     bool   // print auth debug info
}

// Login attempts to authenticate to Microsoft Graph using multiple
// strategies. It returns a Credential on success, or an AuthError with
// setup instructions when every strategy fails.
func Login(ctx context.Context, opts Options) (*Credential, error) {
	if opts.TenantID == "" {
		return nil, fmt.Errorf("tenant ID is required for Microsoft Graph authentication")
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen, color.Bold)

	bold.Fprintf(os.Stderr, "🔐 Authenticating to Entra tenant: %s\n", opts.TenantID)

	// Strategy 1: Environment variables (SPN)
	if os.Getenv("AZURE_CLIENT_ID") != "" && os.Getenv("AZURE_TENANT_ID") != "" {
		if opts.Verbose {
			cyan.Fprintln(os.Stderr, "   Trying: environment variables (AZURE_CLIENT_ID)...")
		}
		cred, err := azidentity.NewEnvironmentCredential(&azidentity.EnvironmentCredentialOptions{})
		if err == nil {
			if err := testCredential(ctx, cred); err == nil {
				green.Fprintln(os.Stderr, "   ✅ Authenticated via environment variables (SPN)")
				return &Credential{TokenCredential: cred, TenantID: opts.TenantID, Method: "environment"}, nil
			}
		}
		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "   ⚠️  Environment credential failed: %v\n", err)
		}
	}

	// Strategy 2: Azure CLI (az login)
	if opts.Verbose {
		cyan.Fprintln(os.Stderr, "   Trying: Azure CLI (az login)...")
	}
	cliCred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
		TenantID: opts.TenantID,
	})
	if err == nil {
		if err := testCredential(ctx, cliCred); err == nil {
			green.Fprintln(os.Stderr, "   ✅ Authenticated via Azure CLI")
			return &Credential{TokenCredential: cliCred, TenantID: opts.TenantID, Method: "cli"}, nil
		} else if opts.Verbose {
			fmt.Fprintf(os.Stderr, "   ⚠️  Azure CLI credential failed: %v\n", err)
		}
	}

	// Strategy 3: Interactive browser login
	if opts.Interactive {
		fmt.Fprintln(os.Stderr)
		bold.Fprintln(os.Stderr, "🌐 Opening browser for Microsoft Graph login...")
		fmt.Fprintf(os.Stderr, "   Tenant: %s\n", opts.TenantID)
		fmt.Fprintln(os.Stderr, "   A browser window will open. Sign in with an account that has")
		fmt.Fprintln(os.Stderr, "   directory read access to the target tenant.")
		fmt.Fprintln(os.Stderr)

		browserCred, err := azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{
			TenantID: opts.TenantID,
		})
		if err == nil {
			if err := testCredential(ctx, browserCred); err == nil {
				green.Fprintln(os.Stderr, "   ✅ Authenticated via browser login")
				return &Credential{TokenCredential: browserCred, TenantID: opts.TenantID, Method: "browser"}, nil
			}
			fmt.Fprintf(os.Stderr, "   ❌ Browser login failed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "   ❌ Could not initiate browser login: %v\n", err)
		}
	}

	return nil, &AuthError{TenantID: opts.TenantID}
}

// testCredential verifies the credential can obtain a Graph token.
func testCredential(ctx context.Context, cred azcore.TokenCredential) error {
	_, err := cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{graph.TokenScope},
	})
	return err
}

// commandRunner abstracts exec.Command for testing.
var commandRunner = func(name string, args ...string) ([]byte, error) {
	return exec.CommandContext(context.Background(), name, args...).Output()
}

// SetCommandRunner replaces the command runner (for testing).
func SetCommandRunner(fn func(string, ...string) ([]byte, error)) {
	commandRunner = fn
}

// GetCommandRunner returns the current command runner (for test save/restore).
func GetCommandRunner() func(string, ...string) ([]byte, error) {
	return commandRunner
}

// DetectTenantID reads the tenant ID from the active Azure CLI session.
func DetectTenantID() (string, error) {
	out, err := commandRunner("az", "account", "show", "--query", "tenantId", "-o", "tsv")
	if err != nil {
		return "", fmt.Errorf("could not detect tenant ID from Azure CLI; run 'az login' first or pass --tenant-id explicitly")
	}
	tid := strings.TrimSpace(string(out))
	if tid == "" {
		return "", fmt.Errorf("Azure CLI returned empty tenant ID; run 'az login' first")
	}
	return tid, nil
}

// AuthError provides a detailed error with setup instructions.
type AuthError struct {
	TenantID string
}

func (e *AuthError) Error() string {
	var sb strings.Builder
	sb.WriteString("❌ Microsoft Graph authentication failed. No valid credential found.\n\n")
	sb.WriteString("To connect entraguard to your Entra tenant, use ONE of these methods:\n\n")

	sb.WriteString("━━━ Method 1: Azure CLI (easiest for local dev) ━━━━━━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("  az login --tenant %s\n", e.TenantID))
	sb.WriteString("  entraguard assess\n\n")

	sb.WriteString("━━━ Method 2: Service Principal (CI/CD & automation) ━━━━━━━━━━━\n")
	sb.WriteString(fmt.Sprintf("  # 1. Create an App Registration in tenant %s\n", e.TenantID))
	sb.WriteString("  az ad app create --display-name \"entraguard\"\n\n")
	sb.WriteString("  # 2. Create a Service Principal\n")
	sb.WriteString("  az ad sp create --id <app-id>\n\n")
	sb.WriteString("  # 3. Grant Graph application permissions and admin consent:\n")
	sb.WriteString("  #    Policy.Read.All, Reports.Read.All, AuditLog.Read.All,\n")
	sb.WriteString("  #    SecurityEvents.Read.All, Organization.Read.All\n")
	sb.WriteString("  #    (harden additionally needs Policy.ReadWrite.ConditionalAccess,\n")
	sb.WriteString("  #     User.ReadWrite.All, RoleManagement.ReadWrite.Directory)\n\n")
	sb.WriteString("  # 4. Set environment variables\n")
	sb.WriteString(fmt.Sprintf("  export AZURE_TENANT_ID=\"%s\"\n", e.TenantID))
	sb.WriteString("  export AZURE_CLIENT_ID=\"<app-id>\"\n")
	sb.WriteString("  export AZURE_CLIENT_SECRET=\"<secret>\"  # or use federated credentials\n\n")

	sb.WriteString("━━━ Method 3: Interactive browser ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	sb.WriteString("  entraguard assess  (will open a browser popup)\n")

	return sb.String()
}
