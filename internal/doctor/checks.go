// Package doctor implements prerequisite checks for entraguard.
//
// It validates that a usable authentication path to Microsoft Graph exists
// (Azure CLI session or service-principal environment variables) and that
// the active template set is loadable and valid.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/entraguard/entraguard/internal/template"
)

// Status represents the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
	StatusSkip Status = "skip"
)

// CheckResult is the outcome of running a single prerequisite check.
type CheckResult struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// Check defines a single prerequisite check.
type Check struct {
	Name     string
	Category string // "tool", "auth", "templates"
	Critical bool   // if true, failure fails the doctor run
	Run      func(ctx context.Context, exec CmdExecutor) CheckResult
}

// CmdExecutor abstracts command execution for testability.
type CmdExecutor interface {
	// Run executes a command and returns combined stdout+stderr output.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// realExecutor runs commands via os/exec.
type realExecutor struct{}

func (r *realExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// NewRealExecutor returns a CmdExecutor backed by os/exec.
func NewRealExecutor() CmdExecutor {
	return &realExecutor{}
}

// Summary holds the aggregated results of all checks.
type Summary struct {
	Results    []CheckResult `json:"results"`
	TotalPass  int           `json:"totalPass"`
	TotalFail  int           `json:"totalFail"`
	TotalWarn  int           `json:"totalWarn"`
	TotalSkip  int           `json:"totalSkip"`
	HasFailure bool          `json:"hasFailure"`
}

// RunAll executes all checks against the given template store.
func RunAll(ctx context.Context, executor CmdExecutor, store *template.Store) Summary {
	checks := AllChecks(store)
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		results = append(results, c.Run(ctx, executor))
	}
	return buildSummary(results, checks)
}

func buildSummary(results []CheckResult, checks []Check) Summary {
	s := Summary{Results: results}
	for i, r := range results {
		switch r.Status {
		case StatusPass:
			s.TotalPass++
		case StatusFail:
			s.TotalFail++
			if checks[i].Critical {
				s.HasFailure = true
			}
		case StatusWarn:
			s.TotalWarn++
		case StatusSkip:
			s.TotalSkip++
		}
	}
	return s
}

// AllChecks returns the ordered list of prerequisite checks.
func AllChecks(store *template.Store) []Check {
	return []Check{
		checkAzCLI(),
		checkAzSession(),
		checkSPNEnv(),
		checkTemplates(store),
	}
}

// --- Auth path checks ---

func checkAzCLI() Check {
	return Check{
		Name:     "az-cli",
		Category: "tool",
		// Non-critical: a service principal via environment variables is a
		// full substitute for the Azure CLI.
		Critical: false,
		Run: func(ctx context.Context, ex CmdExecutor) CheckResult {
			return checkToolVersion(ctx, ex, "az", []string{"version", "--output", "tsv"}, `(\d+\.\d+\.\d+)`, "2.50.0",
				"Install Azure CLI >= 2.50.0: https://learn.microsoft.com/cli/azure/install-azure-cli")
		},
	}
}

func checkAzSession() Check {
	return Check{
		Name:     "az-session",
		Category: "auth",
		Critical: false,
		Run: func(ctx context.Context, ex CmdExecutor) CheckResult {
			out, err := ex.Run(ctx, "az", "account", "show", "--output", "json")
			if err != nil {
				return CheckResult{
					Name:    "az-session",
					Status:  StatusWarn,
					Message: "No active Azure CLI session",
					Fix:     "Run: az login --tenant <your-tenant-id>",
				}
			}
			tenantID := extractJSONField(out, "tenantId")
			userName := extractJSONField(out, "name")
			return CheckResult{
				Name:    "az-session",
				Status:  StatusPass,
				Message: fmt.Sprintf("Logged in to tenant %s as %s", tenantID, userName),
			}
		},
	}
}

func checkSPNEnv() Check {
	return Check{
		Name:     "spn-env",
		Category: "auth",
		Critical: false,
		Run: func(ctx context.Context, ex CmdExecutor) CheckResult {
			_ = ctx
			_ = ex
			clientID := os.Getenv("AZURE_CLIENT_ID")
			tenantID := os.Getenv("AZURE_TENANT_ID")
			secret := os.Getenv("AZURE_CLIENT_SECRET")
			switch {
			case clientID == "" && tenantID == "" && secret == "":
				return CheckResult{
					Name:    "spn-env",
					Status:  StatusSkip,
					Message: "Service principal environment variables not set (using CLI or browser login)",
				}
			case clientID != "" && tenantID != "" && secret != "":
				return CheckResult{
					Name:    "spn-env",
					Status:  StatusPass,
					Message: fmt.Sprintf("Service principal configured for tenant %s", tenantID),
				}
			default:
				return CheckResult{
					Name:    "spn-env",
					Status:  StatusFail,
					Message: "Service principal environment is incomplete",
					Fix:     "Set all of AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET, or unset all three",
				}
			}
		},
	}
}

// --- Template checks ---

func checkTemplates(store *template.Store) Check {
	return Check{
		Name:     "templates",
		Category: "templates",
		Critical: true,
		Run: func(ctx context.Context, ex CmdExecutor) CheckResult {
			_ = ctx
			_ = ex
			loaded, err := store.LoadAll()
			if err != nil {
				return CheckResult{
					Name:    "templates",
					Status:  StatusFail,
					Message: fmt.Sprintf("Template set is invalid: %v", err),
					Fix:     "Run: entraguard validate  for the full error list",
				}
			}
			return CheckResult{
				Name:    "templates",
				Status:  StatusPass,
				Message: fmt.Sprintf("%d templates loaded and valid", len(loaded)),
			}
		},
	}
}

// --- Helpers ---

// checkToolVersion runs a command, extracts version via regex, and compares to min version.
func checkToolVersion(ctx context.Context, ex CmdExecutor, tool string, args []string, pattern, minVersion, fix string) CheckResult {
	out, err := ex.Run(ctx, tool, args...)
	if err != nil {
		return CheckResult{
			Name:    tool,
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s not found or not in PATH", tool),
			Fix:     fix,
		}
	}

	re := regexp.MustCompile(pattern)
	matches := re.FindStringSubmatch(out)
	if len(matches) < 2 {
		return CheckResult{
			Name:    tool,
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s found but could not parse version from output", tool),
		}
	}

	version := matches[1]
	if !semverGTE(version, minVersion) {
		return CheckResult{
			Name:    tool,
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s %s found, but >= %s recommended", tool, version, minVersion),
			Fix:     fix,
		}
	}

	return CheckResult{
		Name:    tool,
		Status:  StatusPass,
		Message: fmt.Sprintf("%s %s", tool, version),
	}
}

// semverGTE returns true if version >= min (simple major.minor.patch comparison).
func semverGTE(version, min string) bool {
	v := parseSemver(version)
	m := parseSemver(min)
	if v[0] != m[0] {
		return v[0] > m[0]
	}
	if v[1] != m[1] {
		return v[1] > m[1]
	}
	return v[2] >= m[2]
}

func parseSemver(s string) [3]int {
	parts := strings.SplitN(s, ".", 3)
	var result [3]int
	for i := 0; i < 3 && i < len(parts); i++ {
		numStr := strings.SplitN(parts[i], "-", 2)[0]
		numStr = strings.SplitN(numStr, "+", 2)[0]
		n, _ := strconv.Atoi(numStr)
		result[i] = n
	}
	return result
}

// extractJSONField does a simple regex extraction for "field": "value" from JSON.
// This avoids decoding the whole document for two fields.
func extractJSONField(jsonStr, field string) string {
	re := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"([^"]*)"`, regexp.QuoteMeta(field)))
	m := re.FindStringSubmatch(jsonStr)
	if len(m) >= 2 {
		return m[1]
	}
	return "unknown"
}
