package report

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the human-readable report. It reads only the
// Document, so the markdown and JSON forms cannot diverge.
func RenderMarkdown(doc *Document) string {
	if doc == nil {
		return "# Tenant Security Posture Report\n\nNo data available.\n"
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "# Tenant Security Posture Report\n\n")
	if doc.Organization != nil {
		fmt.Fprintf(b, "- Tenant: **%s** (`%s`)\n", doc.Organization.DisplayName, doc.Organization.ID)
		fmt.Fprintf(b, "- Primary Domain: `%s`\n", doc.Organization.PrimaryDomain)
	}
	fmt.Fprintf(b, "- Captured At: `%s`\n", doc.CapturedAt.UTC().Format("2006-01-02 15:04:05Z"))
	fmt.Fprintf(b, "- Generated At: `%s`\n\n", doc.GeneratedAt.UTC().Format("2006-01-02 15:04:05Z"))

	unavailable := make(map[string]UnavailableSection, len(doc.Unavailable))
	for _, u := range doc.Unavailable {
		unavailable[u.Section] = u
	}

	writeSecureScore(b, doc, unavailable)
	writeMFA(b, doc, unavailable)
	writePolicies(b, doc, unavailable)
	writeAuthMethods(b, doc, unavailable)
	writeSignInFailures(b, doc, unavailable)
	writeBranding(b, doc, unavailable)

	return b.String()
}

func writeUnavailable(b *strings.Builder, u UnavailableSection) {
	fmt.Fprintf(b, "_Unavailable (%s): %s_\n\n", u.Kind, u.Message)
}

func writeSecureScore(b *strings.Builder, doc *Document, unavailable map[string]UnavailableSection) {
	fmt.Fprintf(b, "## Secure Score\n\n")
	if u, ok := unavailable["secure-score"]; ok {
		writeUnavailable(b, u)
		return
	}
	if doc.SecureScore == nil {
		return
	}
	fmt.Fprintf(b, "- Score: **%.2f / %.2f** (%.2f%%)\n", doc.SecureScore.CurrentScore, doc.SecureScore.MaxScore, doc.SecureScore.Percentage)
	fmt.Fprintf(b, "- Recorded At: `%s`\n\n", doc.SecureScore.RecordedAt.UTC().Format("2006-01-02"))
}

func writeMFA(b *strings.Builder, doc *Document, unavailable map[string]UnavailableSection) {
	fmt.Fprintf(b, "## MFA & SSPR\n\n")
	if u, ok := unavailable["mfa-sspr"]; ok {
		writeUnavailable(b, u)
		return
	}
	if doc.MFA == nil {
		return
	}
	fmt.Fprintf(b, "- Users: %d\n", doc.MFA.TotalUsers)
	fmt.Fprintf(b, "- MFA capable: %d (**%.2f%%**)\n", doc.MFA.MFACapableCount, doc.MFA.MFACapablePercentage)
	fmt.Fprintf(b, "- MFA registered: %d (**%.2f%%**)\n", doc.MFA.MFARegisteredCount, doc.MFA.MFARegisteredPercentage)
	fmt.Fprintf(b, "- SSPR enabled: %t\n\n", doc.MFA.SSPREnabled)
}

func writePolicies(b *strings.Builder, doc *Document, unavailable map[string]UnavailableSection) {
	fmt.Fprintf(b, "## Conditional Access Policies\n\n")
	if u, ok := unavailable["access-policies"]; ok {
		writeUnavailable(b, u)
		return
	}
	if doc.AccessPolicies == nil {
		return
	}
	fmt.Fprintf(b, "- Total: %d (enabled=%d, report-only=%d, disabled=%d)\n\n",
		doc.AccessPolicies.Total, doc.AccessPolicies.Enabled, doc.AccessPolicies.ReportOnly, doc.AccessPolicies.Disabled)
	for _, name := range doc.AccessPolicies.Names {
		fmt.Fprintf(b, "  - %s\n", name)
	}
	if len(doc.AccessPolicies.Names) > 0 {
		fmt.Fprintln(b)
	}
}

func writeAuthMethods(b *strings.Builder, doc *Document, unavailable map[string]UnavailableSection) {
	fmt.Fprintf(b, "## Authentication Methods\n\n")
	if u, ok := unavailable["auth-methods"]; ok {
		writeUnavailable(b, u)
		return
	}
	if doc.AuthMethods == nil {
		return
	}
	fmt.Fprintf(b, "- Enabled: %s\n", listOrNone(doc.AuthMethods.Enabled))
	fmt.Fprintf(b, "- Disabled: %s\n\n", listOrNone(doc.AuthMethods.Disabled))
}

func writeSignInFailures(b *strings.Builder, doc *Document, unavailable map[string]UnavailableSection) {
	fmt.Fprintf(b, "## Sign-in Failures (last 7 days)\n\n")
	if u, ok := unavailable["signin-failures"]; ok {
		writeUnavailable(b, u)
		return
	}
	if doc.SignInFailures == nil {
		return
	}
	fmt.Fprintf(b, "- Total: %d\n\n", doc.SignInFailures.Total)

	writeChart(b, "Top users", doc.SignInFailures.TopUsers)
	writeChart(b, "Top source addresses", doc.SignInFailures.TopIPs)
	writeChart(b, "Top applications", doc.SignInFailures.TopApps)

	if len(doc.SignInFailures.Details) > 0 {
		fmt.Fprintf(b, "### Details\n\n")
		fmt.Fprintf(b, "| Time | User | Application | Source | Code | Reason |\n")
		fmt.Fprintf(b, "|------|------|-------------|--------|------|--------|\n")
		for _, d := range doc.SignInFailures.Details {
			fmt.Fprintf(b, "| %s | %s | %s | %s | %d | %s |\n",
				d.CreatedAt.UTC().Format("2006-01-02 15:04"), d.User, d.App, d.IPAddress, d.ErrorCode, d.FailureReason)
		}
		fmt.Fprintln(b)
	}
}

func writeChart(b *strings.Builder, title string, groups []GroupCount) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, g := range groups {
		bar := strings.Repeat("█", barWidth(g.Share))
		fmt.Fprintf(b, "- %-30s %s %d (%.1f%%)\n", g.Name, bar, g.Count, g.Share)
	}
	fmt.Fprintln(b)
}

func barWidth(share float64) int {
	width := int(share / 5) // 20 chars at 100%
	if width < 1 {
		width = 1
	}
	return width
}

func writeBranding(b *strings.Builder, doc *Document, unavailable map[string]UnavailableSection) {
	fmt.Fprintf(b, "## Company Branding\n\n")
	if u, ok := unavailable["branding"]; ok {
		writeUnavailable(b, u)
		return
	}
	if doc.Branding == nil {
		return
	}
	fmt.Fprintf(b, "- Configured: %t\n", doc.Branding.HasBranding)
	if len(doc.Branding.ConfiguredFields) > 0 {
		fmt.Fprintf(b, "- Fields: %s\n", strings.Join(doc.Branding.ConfiguredFields, ", "))
	}
	fmt.Fprintln(b)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
