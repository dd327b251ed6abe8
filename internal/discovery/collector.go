// Package discovery runs the read-only assessment probes against a tenant
// and assembles their outcomes into an immutable TenantSnapshot.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/entraguard/entraguard/internal/graph"
)

// signInFailureWindow bounds how far back the sign-in failure probe looks.
const signInFailureWindow = 7 * 24 * time.Hour

// DirectoryReader is the read-only slice of the directory client the
// collector needs. *graph.Client satisfies it.
type DirectoryReader interface {
	Organization(ctx context.Context) (graph.Organization, error)
	ListConditionalAccessPolicies(ctx context.Context) ([]graph.ConditionalAccessPolicy, error)
	ListUserRegistrationDetails(ctx context.Context) ([]graph.UserRegistrationDetail, error)
	AuthorizationPolicy(ctx context.Context) (graph.AuthorizationPolicy, error)
	ListAuthenticationMethodConfigs(ctx context.Context) ([]graph.AuthenticationMethodConfig, error)
	LatestSecureScore(ctx context.Context) (graph.SecureScore, error)
	ListSignInFailures(ctx context.Context, since time.Time) ([]graph.SignInEvent, error)
	ListBrandingLocalizations(ctx context.Context, organizationID string) ([]graph.BrandingLocalization, error)
}

// Collector executes the fixed probe set. Probes are independent: one
// probe's failure is captured in its slot and never interrupts the rest.
type Collector struct {
	reader         DirectoryReader
	now            func() time.Time
	maxConcurrency int
}

// NewCollector creates a collector with a bounded probe pool.
func NewCollector(reader DirectoryReader) *Collector {
	return &Collector{reader: reader, now: time.Now, maxConcurrency: 4}
}

// SetClock overrides the clock (tests).
func (c *Collector) SetClock(now func() time.Time) { c.now = now }

// Collect runs every probe and returns the snapshot. The returned error is
// non-nil only when the context was cancelled; the snapshot is still valid
// and records unstarted probes as failed.
func (c *Collector) Collect(ctx context.Context) (*TenantSnapshot, error) {
	snapshot := &TenantSnapshot{CapturedAt: c.now().UTC()}

	// The organization probe runs first: branding addressing and the
	// reconciler's emergency-account naming both need the tenant identity.
	if err := ctx.Err(); err != nil {
		c.markAllCancelled(snapshot, err)
		return snapshot, err
	}
	if org, err := c.reader.Organization(ctx); err != nil {
		snapshot.Organization = Failed[graph.Organization](err)
	} else {
		snapshot.Organization = Success(org)
	}

	// Remaining probes have no data dependency on each other and run in a
	// bounded pool. Results land in declared slots, so assembly order is
	// probe-declaration order regardless of completion order.
	probes := []struct {
		name string
		run  func(context.Context)
	}{
		{"access-policies", func(ctx context.Context) { snapshot.AccessPolicies = c.probeAccessPolicies(ctx) }},
		{"mfa-sspr", func(ctx context.Context) { snapshot.MFA = c.probeMFA(ctx) }},
		{"auth-methods", func(ctx context.Context) { snapshot.AuthMethods = c.probeAuthMethods(ctx) }},
		{"secure-score", func(ctx context.Context) { snapshot.SecureScore = c.probeSecureScore(ctx) }},
		{"signin-failures", func(ctx context.Context) { snapshot.SignInFailures = c.probeSignInFailures(ctx) }},
		{"branding", func(ctx context.Context) { snapshot.Branding = c.probeBranding(ctx, snapshot.Organization) }},
	}

	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup
	var cancelled error

	for _, probe := range probes {
		if err := ctx.Err(); err != nil {
			cancelled = err
			run := probe.run
			run(ctx) // probe sees the cancelled context and records failure
			continue
		}
		run := probe.run
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			run(ctx)
		}()
	}
	wg.Wait()

	return snapshot, cancelled
}

func (c *Collector) probeAccessPolicies(ctx context.Context) ProbeResult[[]graph.ConditionalAccessPolicy] {
	policies, err := c.reader.ListConditionalAccessPolicies(ctx)
	if err != nil {
		return Failed[[]graph.ConditionalAccessPolicy](err)
	}
	return Success(policies)
}

func (c *Collector) probeMFA(ctx context.Context) ProbeResult[MFAStatus] {
	details, err := c.reader.ListUserRegistrationDetails(ctx)
	if err != nil {
		return Failed[MFAStatus](err)
	}
	authz, err := c.reader.AuthorizationPolicy(ctx)
	if err != nil {
		return Failed[MFAStatus](err)
	}

	status := MFAStatus{TotalUsers: len(details), SSPREnabled: authz.AllowedToUseSSPR}
	for _, d := range details {
		if d.IsMFACapable {
			status.MFACapableCount++
		}
		if d.IsMFARegistered {
			status.MFARegisteredCount++
		}
	}
	status.MFACapablePercentage = Percent(status.MFACapableCount, status.TotalUsers)
	status.MFARegisteredPercentage = Percent(status.MFARegisteredCount, status.TotalUsers)
	return Success(status)
}

func (c *Collector) probeAuthMethods(ctx context.Context) ProbeResult[[]graph.AuthenticationMethodConfig] {
	configs, err := c.reader.ListAuthenticationMethodConfigs(ctx)
	if err != nil {
		return Failed[[]graph.AuthenticationMethodConfig](err)
	}
	return Success(configs)
}

func (c *Collector) probeSecureScore(ctx context.Context) ProbeResult[SecureScoreStatus] {
	score, err := c.reader.LatestSecureScore(ctx)
	if err != nil {
		return Failed[SecureScoreStatus](err)
	}
	status := SecureScoreStatus{
		CurrentScore: score.CurrentScore,
		MaxScore:     score.MaxScore,
		RecordedAt:   score.CreatedAt,
	}
	if score.MaxScore > 0 {
		status.Percentage = Round2(score.CurrentScore / score.MaxScore * 100)
	}
	return Success(status)
}

func (c *Collector) probeSignInFailures(ctx context.Context) ProbeResult[[]graph.SignInEvent] {
	since := c.now().UTC().Add(-signInFailureWindow)
	events, err := c.reader.ListSignInFailures(ctx, since)
	if err != nil {
		return Failed[[]graph.SignInEvent](err)
	}
	// The remote filter already excludes errorCode 0; keep the guard so a
	// lenient fake or endpoint cannot smuggle successes into the failure set.
	failures := make([]graph.SignInEvent, 0, len(events))
	for _, e := range events {
		if e.ErrorCode != 0 {
			failures = append(failures, e)
		}
	}
	return Success(failures)
}

// brandingFields is the fixed field set that counts as "has branding".
var brandingFields = []struct {
	name  string
	value func(graph.BrandingLocalization) string
}{
	{"backgroundColor", func(b graph.BrandingLocalization) string { return b.BackgroundColor }},
	{"backgroundImage", func(b graph.BrandingLocalization) string { return b.BackgroundImageURL }},
	{"bannerLogo", func(b graph.BrandingLocalization) string { return b.BannerLogoURL }},
	{"signInPageText", func(b graph.BrandingLocalization) string { return b.SignInPageText }},
	{"squareLogo", func(b graph.BrandingLocalization) string { return b.SquareLogoURL }},
	{"usernameHintText", func(b graph.BrandingLocalization) string { return b.UsernameHintText }},
}

func (c *Collector) probeBranding(ctx context.Context, org ProbeResult[graph.Organization]) ProbeResult[BrandingStatus] {
	if !org.OK() {
		return Failed[BrandingStatus](graph.NewError(org.Failure.Kind, "organization identity unavailable: %s", org.Failure.Message))
	}
	localizations, err := c.reader.ListBrandingLocalizations(ctx, org.Data.ID)
	if err != nil {
		return Failed[BrandingStatus](err)
	}
	status := BrandingStatus{Localizations: len(localizations)}
	if len(localizations) == 0 {
		// No localization at all is a real answer, not an error.
		return Success(status)
	}
	defaultLoc := localizations[0]
	for _, field := range brandingFields {
		if field.value(defaultLoc) != "" {
			status.ConfiguredFields = append(status.ConfiguredFields, field.name)
		}
	}
	status.HasBranding = len(status.ConfiguredFields) > 0
	return Success(status)
}

func (c *Collector) markAllCancelled(snapshot *TenantSnapshot, err error) {
	snapshot.Organization = Failed[graph.Organization](err)
	snapshot.AccessPolicies = Failed[[]graph.ConditionalAccessPolicy](err)
	snapshot.MFA = Failed[MFAStatus](err)
	snapshot.AuthMethods = Failed[[]graph.AuthenticationMethodConfig](err)
	snapshot.SecureScore = Failed[SecureScoreStatus](err)
	snapshot.SignInFailures = Failed[[]graph.SignInEvent](err)
	snapshot.Branding = Failed[BrandingStatus](err)
}

// FailedProbes lists the names of probes that did not succeed, in
// declaration order. Used for the degraded result code and run summaries.
func (s *TenantSnapshot) FailedProbes() []string {
	out := make([]string, 0)
	if !s.Organization.OK() {
		out = append(out, "organization")
	}
	if !s.AccessPolicies.OK() {
		out = append(out, "access-policies")
	}
	if !s.MFA.OK() {
		out = append(out, "mfa-sspr")
	}
	if !s.AuthMethods.OK() {
		out = append(out, "auth-methods")
	}
	if !s.SecureScore.OK() {
		out = append(out, "secure-score")
	}
	if !s.SignInFailures.OK() {
		out = append(out, "signin-failures")
	}
	if !s.Branding.OK() {
		out = append(out, "branding")
	}
	return out
}
