// Package report derives aggregate metrics from a TenantSnapshot and
// renders them. Synthesis is a pure function of the snapshot; the document
// is regenerable at any time and never a primary store of truth.
package report

import (
	"time"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/graph"
)

// Grouping limits: charts show the top 5, the detailed listing up to 50.
const (
	TopGroupLimit = 5
	DetailLimit   = 50
)

// Document is the derived, read-only report view. A section is present only
// if its probe succeeded; failed probes appear in Unavailable with their
// reason, so a failure is never mistaken for a genuine zero result.
type Document struct {
	GeneratedAt    time.Time              `json:"generatedAt"`
	CapturedAt     time.Time              `json:"capturedAt"`
	Organization   *graph.Organization    `json:"organization,omitempty"`
	AccessPolicies *PolicySummary         `json:"accessPolicies,omitempty"`
	MFA            *discovery.MFAStatus   `json:"mfa,omitempty"`
	AuthMethods    *AuthMethodsSummary    `json:"authMethods,omitempty"`
	SecureScore    *discovery.SecureScoreStatus `json:"secureScore,omitempty"`
	SignInFailures *SignInFailureSummary  `json:"signInFailures,omitempty"`
	Branding       *discovery.BrandingStatus `json:"branding,omitempty"`
	Unavailable    []UnavailableSection   `json:"unavailable,omitempty"`
}

// UnavailableSection marks a probe whose data could not be collected.
type UnavailableSection struct {
	Section string     `json:"section"`
	Kind    graph.Kind `json:"kind"`
	Message string     `json:"message"`
}

// PolicySummary aggregates the conditional-access policy collection.
type PolicySummary struct {
	Total      int      `json:"total"`
	Enabled    int      `json:"enabled"`
	ReportOnly int      `json:"reportOnly"`
	Disabled   int      `json:"disabled"`
	Names      []string `json:"names,omitempty"`
}

// AuthMethodsSummary splits method configs by state.
type AuthMethodsSummary struct {
	Enabled  []string `json:"enabled,omitempty"`
	Disabled []string `json:"disabled,omitempty"`
}

// SignInFailureSummary aggregates the failure window.
type SignInFailureSummary struct {
	Total    int             `json:"total"`
	TopUsers []GroupCount    `json:"topUsers,omitempty"`
	TopIPs   []GroupCount    `json:"topIPs,omitempty"`
	TopApps  []GroupCount    `json:"topApps,omitempty"`
	Details  []FailureDetail `json:"details,omitempty"`
}

// GroupCount is one bar of a top-N chart. Share is the group's percentage
// of the total failure count.
type GroupCount struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// FailureDetail is one row of the detailed failure listing.
type FailureDetail struct {
	CreatedAt     time.Time `json:"createdAt"`
	User          string    `json:"user"`
	App           string    `json:"app"`
	IPAddress     string    `json:"ipAddress"`
	ErrorCode     int       `json:"errorCode"`
	FailureReason string    `json:"failureReason,omitempty"`
}
