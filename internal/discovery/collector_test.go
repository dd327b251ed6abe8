package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraguard/entraguard/internal/graph"
)

// fakeReader serves canned data with per-probe error injection.
type fakeReader struct {
	orgErr       error
	policiesErr  error
	usersErr     error
	authzErr     error
	methodsErr   error
	scoreErr     error
	signInsErr   error
	brandingErr  error

	org      graph.Organization
	policies []graph.ConditionalAccessPolicy
	users    []graph.UserRegistrationDetail
	authz    graph.AuthorizationPolicy
	methods  []graph.AuthenticationMethodConfig
	score    graph.SecureScore
	signIns  []graph.SignInEvent
	branding []graph.BrandingLocalization

	signInsSince time.Time
	brandingOrg  string
}

func healthyReader() *fakeReader {
	return &fakeReader{
		org: graph.Organization{ID: "org-1", DisplayName: "Contoso", PrimaryDomain: "contoso.com"},
		policies: []graph.ConditionalAccessPolicy{
			{ID: "p1", DisplayName: "Require MFA", State: "enabled"},
		},
		users: []graph.UserRegistrationDetail{
			{ID: "u1", IsMFACapable: true, IsMFARegistered: true},
			{ID: "u2", IsMFACapable: true, IsMFARegistered: false},
			{ID: "u3", IsMFACapable: false, IsMFARegistered: false},
		},
		authz:   graph.AuthorizationPolicy{AllowedToUseSSPR: true},
		methods: []graph.AuthenticationMethodConfig{{ID: "Fido2", State: "enabled"}},
		score:   graph.SecureScore{CurrentScore: 43, MaxScore: 100},
		signIns: []graph.SignInEvent{
			{ID: "e1", UserPrincipalName: "alice@contoso.com", ErrorCode: 50126},
		},
		branding: []graph.BrandingLocalization{{ID: "0", BackgroundColor: "#1B1F3B"}},
	}
}

func (f *fakeReader) Organization(ctx context.Context) (graph.Organization, error) {
	return f.org, f.orgErr
}

func (f *fakeReader) ListConditionalAccessPolicies(ctx context.Context) ([]graph.ConditionalAccessPolicy, error) {
	return f.policies, f.policiesErr
}

func (f *fakeReader) ListUserRegistrationDetails(ctx context.Context) ([]graph.UserRegistrationDetail, error) {
	return f.users, f.usersErr
}

func (f *fakeReader) AuthorizationPolicy(ctx context.Context) (graph.AuthorizationPolicy, error) {
	return f.authz, f.authzErr
}

func (f *fakeReader) ListAuthenticationMethodConfigs(ctx context.Context) ([]graph.AuthenticationMethodConfig, error) {
	return f.methods, f.methodsErr
}

func (f *fakeReader) LatestSecureScore(ctx context.Context) (graph.SecureScore, error) {
	return f.score, f.scoreErr
}

func (f *fakeReader) ListSignInFailures(ctx context.Context, since time.Time) ([]graph.SignInEvent, error) {
	f.signInsSince = since
	return f.signIns, f.signInsErr
}

func (f *fakeReader) ListBrandingLocalizations(ctx context.Context, organizationID string) ([]graph.BrandingLocalization, error) {
	f.brandingOrg = organizationID
	return f.branding, f.brandingErr
}

func TestCollect_AllProbesSucceed(t *testing.T) {
	reader := healthyReader()
	collector := NewCollector(reader)

	snapshot, err := collector.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.FailedProbes())

	assert.Equal(t, "contoso.com", snapshot.Organization.Data.PrimaryDomain)
	assert.Len(t, snapshot.AccessPolicies.Data, 1)
	assert.Equal(t, 43.0, snapshot.SecureScore.Data.CurrentScore)
	assert.Equal(t, 43.0, snapshot.SecureScore.Data.Percentage)
	assert.Equal(t, "org-1", reader.brandingOrg)
}

func TestCollect_MFAPercentages(t *testing.T) {
	snapshot, err := NewCollector(healthyReader()).Collect(context.Background())
	require.NoError(t, err)

	mfa := snapshot.MFA.Data
	assert.Equal(t, 3, mfa.TotalUsers)
	assert.Equal(t, 2, mfa.MFACapableCount)
	assert.Equal(t, 1, mfa.MFARegisteredCount)
	assert.Equal(t, 66.67, mfa.MFACapablePercentage)
	assert.Equal(t, 33.33, mfa.MFARegisteredPercentage)
	assert.True(t, mfa.SSPREnabled)
}

func TestCollect_ZeroUsersYieldsZeroPercent(t *testing.T) {
	reader := healthyReader()
	reader.users = nil

	snapshot, err := NewCollector(reader).Collect(context.Background())
	require.NoError(t, err)

	mfa := snapshot.MFA.Data
	assert.True(t, snapshot.MFA.OK())
	assert.Equal(t, 0, mfa.TotalUsers)
	assert.Equal(t, 0.0, mfa.MFACapablePercentage)
	assert.Equal(t, 0.0, mfa.MFARegisteredPercentage)
}

func TestCollect_OneProbeFailureIsIsolated(t *testing.T) {
	reader := healthyReader()
	reader.scoreErr = graph.FromStatus(403, "Insufficient privileges")

	snapshot, err := NewCollector(reader).Collect(context.Background())
	require.NoError(t, err)

	assert.False(t, snapshot.SecureScore.OK())
	assert.Equal(t, graph.KindPermissionDenied, snapshot.SecureScore.Failure.Kind)

	// Every other probe still produced data.
	assert.True(t, snapshot.Organization.OK())
	assert.True(t, snapshot.AccessPolicies.OK())
	assert.True(t, snapshot.MFA.OK())
	assert.True(t, snapshot.AuthMethods.OK())
	assert.True(t, snapshot.SignInFailures.OK())
	assert.True(t, snapshot.Branding.OK())

	assert.Equal(t, []string{"secure-score"}, snapshot.FailedProbes())
}

func TestCollect_BrandingNeedsOrganization(t *testing.T) {
	reader := healthyReader()
	reader.orgErr = graph.FromStatus(403, "denied")

	snapshot, err := NewCollector(reader).Collect(context.Background())
	require.NoError(t, err)

	assert.False(t, snapshot.Branding.OK())
	assert.Equal(t, graph.KindPermissionDenied, snapshot.Branding.Failure.Kind)
	assert.Contains(t, snapshot.Branding.Failure.Message, "organization identity unavailable")
}

func TestCollect_NoBrandingLocalizationsIsSuccess(t *testing.T) {
	reader := healthyReader()
	reader.branding = nil

	snapshot, err := NewCollector(reader).Collect(context.Background())
	require.NoError(t, err)

	require.True(t, snapshot.Branding.OK())
	assert.False(t, snapshot.Branding.Data.HasBranding)
	assert.Equal(t, 0, snapshot.Branding.Data.Localizations)
}

func TestCollect_BrandingConfiguredFields(t *testing.T) {
	reader := healthyReader()
	reader.branding = []graph.BrandingLocalization{{
		ID:              "0",
		BackgroundColor: "#1B1F3B",
		SignInPageText:  "Authorized users only",
	}}

	snapshot, err := NewCollector(reader).Collect(context.Background())
	require.NoError(t, err)

	require.True(t, snapshot.Branding.OK())
	assert.True(t, snapshot.Branding.Data.HasBranding)
	assert.Equal(t, []string{"backgroundColor", "signInPageText"}, snapshot.Branding.Data.ConfiguredFields)
}

func TestCollect_SignInFailureWindow(t *testing.T) {
	reader := healthyReader()
	collector := NewCollector(reader)
	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	collector.SetClock(func() time.Time { return fixed })

	_, err := collector.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixed.Add(-7*24*time.Hour), reader.signInsSince)
}

func TestCollect_FiltersZeroErrorCodes(t *testing.T) {
	reader := healthyReader()
	reader.signIns = []graph.SignInEvent{
		{ID: "ok", ErrorCode: 0},
		{ID: "bad", ErrorCode: 50126},
	}

	snapshot, err := NewCollector(reader).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.SignInFailures.Data, 1)
	assert.Equal(t, "bad", snapshot.SignInFailures.Data[0].ID)
}

func TestCollect_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshot, err := NewCollector(healthyReader()).Collect(ctx)
	require.Error(t, err)

	// Every probe is recorded as failed; none is silently missing.
	assert.Len(t, snapshot.FailedProbes(), 7)
}
