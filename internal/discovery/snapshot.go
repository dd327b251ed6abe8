package discovery

import (
	"math"
	"time"

	"github.com/entraguard/entraguard/internal/graph"
)

// TenantSnapshot is the immutable record of one discovery run. It is
// constructed once by the Collector and passed by reference; no component
// mutates it afterwards. Field order is probe-declaration order so repeated
// runs against an unchanged tenant are structurally comparable.
type TenantSnapshot struct {
	CapturedAt     time.Time                                      `json:"capturedAt"`
	Organization   ProbeResult[graph.Organization]                `json:"organization"`
	AccessPolicies ProbeResult[[]graph.ConditionalAccessPolicy]   `json:"accessPolicies"`
	MFA            ProbeResult[MFAStatus]                         `json:"mfa"`
	AuthMethods    ProbeResult[[]graph.AuthenticationMethodConfig] `json:"authMethods"`
	SecureScore    ProbeResult[SecureScoreStatus]                 `json:"secureScore"`
	SignInFailures ProbeResult[[]graph.SignInEvent]               `json:"signInFailures"`
	Branding       ProbeResult[BrandingStatus]                    `json:"branding"`
}

// MFAStatus aggregates per-user registration detail with the tenant SSPR
// policy into derived coverage metrics.
type MFAStatus struct {
	TotalUsers              int     `json:"totalUsers"`
	MFACapableCount         int     `json:"mfaCapableCount"`
	MFARegisteredCount      int     `json:"mfaRegisteredCount"`
	MFACapablePercentage    float64 `json:"mfaCapablePercentage"`
	MFARegisteredPercentage float64 `json:"mfaRegisteredPercentage"`
	SSPREnabled             bool    `json:"ssprEnabled"`
}

// SecureScoreStatus is the latest platform posture rating.
type SecureScoreStatus struct {
	CurrentScore float64   `json:"currentScore"`
	MaxScore     float64   `json:"maxScore"`
	Percentage   float64   `json:"percentage"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// BrandingStatus reports whether the default localization carries any of
// the branding fields that count as "configured".
type BrandingStatus struct {
	HasBranding      bool     `json:"hasBranding"`
	ConfiguredFields []string `json:"configuredFields,omitempty"`
	Localizations    int      `json:"localizations"`
}

// Percent computes part/total as a percentage rounded half-up to two
// decimal places. A zero total yields 0, never a division error.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
