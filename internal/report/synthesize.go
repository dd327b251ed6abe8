package report

import (
	"sort"
	"time"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/graph"
)

// Synthesize derives the report document from a snapshot. It performs no
// remote calls and never modifies the snapshot.
func Synthesize(snapshot *discovery.TenantSnapshot) *Document {
	doc := &Document{
		GeneratedAt: time.Now().UTC(),
		CapturedAt:  snapshot.CapturedAt,
	}

	section(doc, "organization", snapshot.Organization, func(org graph.Organization) {
		doc.Organization = &org
	})
	section(doc, "access-policies", snapshot.AccessPolicies, func(policies []graph.ConditionalAccessPolicy) {
		doc.AccessPolicies = summarizePolicies(policies)
	})
	section(doc, "mfa-sspr", snapshot.MFA, func(mfa discovery.MFAStatus) {
		doc.MFA = &mfa
	})
	section(doc, "auth-methods", snapshot.AuthMethods, func(configs []graph.AuthenticationMethodConfig) {
		doc.AuthMethods = summarizeAuthMethods(configs)
	})
	section(doc, "secure-score", snapshot.SecureScore, func(score discovery.SecureScoreStatus) {
		doc.SecureScore = &score
	})
	section(doc, "signin-failures", snapshot.SignInFailures, func(events []graph.SignInEvent) {
		doc.SignInFailures = summarizeFailures(events)
	})
	section(doc, "branding", snapshot.Branding, func(branding discovery.BrandingStatus) {
		doc.Branding = &branding
	})

	return doc
}

// section applies fn to successful probe data or records the failure as an
// explicit unavailable marker.
func section[T any](doc *Document, name string, result discovery.ProbeResult[T], fn func(T)) {
	if result.OK() {
		fn(result.Data)
		return
	}
	marker := UnavailableSection{Section: name, Kind: graph.KindUnknown, Message: "probe did not run"}
	if result.Failure != nil {
		marker.Kind = result.Failure.Kind
		marker.Message = result.Failure.Message
	}
	doc.Unavailable = append(doc.Unavailable, marker)
}

func summarizePolicies(policies []graph.ConditionalAccessPolicy) *PolicySummary {
	out := &PolicySummary{Total: len(policies)}
	for _, p := range policies {
		out.Names = append(out.Names, p.DisplayName)
		switch p.State {
		case "enabled":
			out.Enabled++
		case "enabledForReportingButNotEnforced":
			out.ReportOnly++
		default:
			out.Disabled++
		}
	}
	return out
}

func summarizeAuthMethods(configs []graph.AuthenticationMethodConfig) *AuthMethodsSummary {
	out := &AuthMethodsSummary{}
	for _, c := range configs {
		if c.State == "enabled" {
			out.Enabled = append(out.Enabled, c.ID)
		} else {
			out.Disabled = append(out.Disabled, c.ID)
		}
	}
	return out
}

func summarizeFailures(events []graph.SignInEvent) *SignInFailureSummary {
	out := &SignInFailureSummary{Total: len(events)}

	out.TopUsers = topGroups(events, len(events), func(e graph.SignInEvent) string {
		if e.UserDisplayName != "" {
			return e.UserDisplayName
		}
		return e.UserPrincipalName
	})
	out.TopIPs = topGroups(events, len(events), func(e graph.SignInEvent) string { return e.IPAddress })
	out.TopApps = topGroups(events, len(events), func(e graph.SignInEvent) string { return e.AppDisplayName })

	limit := len(events)
	if limit > DetailLimit {
		limit = DetailLimit
	}
	for _, e := range events[:limit] {
		user := e.UserDisplayName
		if user == "" {
			user = e.UserPrincipalName
		}
		out.Details = append(out.Details, FailureDetail{
			CreatedAt:     e.CreatedAt,
			User:          user,
			App:           e.AppDisplayName,
			IPAddress:     e.IPAddress,
			ErrorCode:     e.ErrorCode,
			FailureReason: e.FailureReason,
		})
	}
	return out
}

// topGroups counts events per key, keeping first-encountered order for
// ties, and returns up to TopGroupLimit groups by descending count. The
// grouping is stable: it is never re-sorted by name.
func topGroups(events []graph.SignInEvent, total int, key func(graph.SignInEvent) string) []GroupCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	groups := make([]GroupCount, 0, len(order))
	for _, k := range order {
		groups = append(groups, GroupCount{
			Name:  k,
			Count: counts[k],
			Share: discovery.Percent(counts[k], total),
		})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })

	if len(groups) > TopGroupLimit {
		groups = groups[:TopGroupLimit]
	}
	return groups
}
