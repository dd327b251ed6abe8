package reconcile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraguard/entraguard/internal/graph"
	"github.com/entraguard/entraguard/internal/template"
)

type enabledCall struct {
	userID  string
	enabled bool
}

// fakeDirectory implements DirectoryWriter in memory and records writes.
type fakeDirectory struct {
	users           map[string]graph.User
	lookupErr       error
	createUserErr   error
	createdUsers    []graph.User
	createdPassword string
	enabledCalls    []enabledCall

	role           graph.DirectoryRole
	roleErr        error
	addRoleErr     error
	roleMemberAdds []string

	policies        []graph.ConditionalAccessPolicy
	listPoliciesErr error
	createdPolicies []graph.ConditionalAccessPolicy

	authzPolicy  graph.AuthorizationPolicy
	authzErr     error
	authzUpdates []map[string]any

	ssprPolicy  graph.SSPRPolicy
	ssprUpdates []map[string]any

	methodConfigs  []graph.AuthenticationMethodConfig
	methodUpdates  map[string]map[string]any
	listMethodsErr error

	groupSettings   []graph.GroupSetting
	createdSettings []graph.GroupSetting

	brandingLocs    []graph.BrandingLocalization
	brandingUpdates []map[string]any
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:         map[string]graph.User{},
		role:          graph.DirectoryRole{ID: "role-ga", DisplayName: "Global Administrator"},
		methodUpdates: map[string]map[string]any{},
	}
}

func (f *fakeDirectory) UserByPrincipalName(_ context.Context, upn string) (graph.User, error) {
	if f.lookupErr != nil {
		return graph.User{}, f.lookupErr
	}
	u, ok := f.users[upn]
	if !ok {
		return graph.User{}, graph.FromStatus(404, "user not found")
	}
	return u, nil
}

func (f *fakeDirectory) CreateUser(_ context.Context, user graph.User, password string) (graph.User, error) {
	if f.createUserErr != nil {
		return graph.User{}, f.createUserErr
	}
	user.ID = "emergency-id"
	f.createdUsers = append(f.createdUsers, user)
	f.createdPassword = password
	return user, nil
}

func (f *fakeDirectory) SetAccountEnabled(_ context.Context, userID string, enabled bool) error {
	f.enabledCalls = append(f.enabledCalls, enabledCall{userID, enabled})
	return nil
}

func (f *fakeDirectory) DirectoryRoleByName(_ context.Context, _ string) (graph.DirectoryRole, error) {
	if f.roleErr != nil {
		return graph.DirectoryRole{}, f.roleErr
	}
	return f.role, nil
}

func (f *fakeDirectory) AddRoleMember(_ context.Context, _, userID string) error {
	if f.addRoleErr != nil {
		return f.addRoleErr
	}
	f.roleMemberAdds = append(f.roleMemberAdds, userID)
	return nil
}

func (f *fakeDirectory) ListConditionalAccessPolicies(_ context.Context) ([]graph.ConditionalAccessPolicy, error) {
	return f.policies, f.listPoliciesErr
}

func (f *fakeDirectory) CreateConditionalAccessPolicy(_ context.Context, p graph.ConditionalAccessPolicy) (graph.ConditionalAccessPolicy, error) {
	f.createdPolicies = append(f.createdPolicies, p)
	return p, nil
}

func (f *fakeDirectory) AuthorizationPolicy(_ context.Context) (graph.AuthorizationPolicy, error) {
	return f.authzPolicy, f.authzErr
}

func (f *fakeDirectory) UpdateAuthorizationPolicy(_ context.Context, changes map[string]any) error {
	f.authzUpdates = append(f.authzUpdates, changes)
	return nil
}

func (f *fakeDirectory) SSPRPolicy(_ context.Context) (graph.SSPRPolicy, error) {
	return f.ssprPolicy, nil
}

func (f *fakeDirectory) UpdateSSPRPolicy(_ context.Context, changes map[string]any) error {
	f.ssprUpdates = append(f.ssprUpdates, changes)
	return nil
}

func (f *fakeDirectory) ListAuthenticationMethodConfigs(_ context.Context) ([]graph.AuthenticationMethodConfig, error) {
	return f.methodConfigs, f.listMethodsErr
}

func (f *fakeDirectory) UpdateAuthenticationMethodConfig(_ context.Context, id string, changes map[string]any) error {
	f.methodUpdates[id] = changes
	return nil
}

func (f *fakeDirectory) ListGroupSettings(_ context.Context) ([]graph.GroupSetting, error) {
	return f.groupSettings, nil
}

func (f *fakeDirectory) CreateGroupSetting(_ context.Context, setting graph.GroupSetting) (graph.GroupSetting, error) {
	f.createdSettings = append(f.createdSettings, setting)
	return setting, nil
}

func (f *fakeDirectory) ListBrandingLocalizations(_ context.Context, _ string) ([]graph.BrandingLocalization, error) {
	return f.brandingLocs, nil
}

func (f *fakeDirectory) UpdateBranding(_ context.Context, _ string, changes map[string]any) error {
	f.brandingUpdates = append(f.brandingUpdates, changes)
	return nil
}

func fullPlan(t *testing.T) *Plan {
	t.Helper()
	plan, err := NewPlan(snapshotWithOrg(), []*template.Template{
		templateFor(template.CategoryConditionalAccess, "require-mfa"),
		templateFor(template.CategorySSPR, "sspr"),
		templateFor(template.CategoryAuthenticationMethods, "methods"),
		templateFor(template.CategoryPasswordProtection, "lockout"),
		templateFor(template.CategoryBranding, "branding"),
	})
	require.NoError(t, err)
	return plan
}

func TestApply_FreshTenantCreatesEverything(t *testing.T) {
	dir := newFakeDirectory()
	result := New(dir).Apply(context.Background(), fullPlan(t))

	require.Len(t, result.Steps, 6)
	for _, sr := range result.Steps {
		assert.Equal(t, OutcomeCreated, sr.Outcome, "step %s: %s", sr.StepID, sr.Message)
	}
	assert.Equal(t, 6, result.CreatedCount())
	assert.Zero(t, result.FailedCount())

	// The break-glass account was created disabled, granted the role,
	// then enabled.
	require.Len(t, dir.createdUsers, 1)
	created := dir.createdUsers[0]
	assert.Equal(t, "emergency-access@contoso.com", created.UserPrincipalName)
	assert.False(t, created.AccountEnabled)
	assert.Equal(t, []string{"emergency-id"}, dir.roleMemberAdds)
	require.Len(t, dir.enabledCalls, 1)
	assert.Equal(t, enabledCall{"emergency-id", true}, dir.enabledCalls[0])

	assert.True(t, result.Emergency.Created)
	assert.Equal(t, "emergency-id", result.Emergency.ID)
	assert.Len(t, result.Emergency.Password, MinPasswordLength)
	assert.Equal(t, dir.createdPassword, result.Emergency.Password)
}

func TestApply_EmergencyAccountExcludedFromPolicies(t *testing.T) {
	dir := newFakeDirectory()
	result := New(dir).Apply(context.Background(), fullPlan(t))

	require.Len(t, dir.createdPolicies, 1)
	policy := dir.createdPolicies[0]
	assert.Contains(t, policy.Conditions.Users.ExcludeUsers, "emergency-id")
	assert.Equal(t, []string{"All"}, policy.Conditions.Users.IncludeUsers)
	assert.Equal(t, []string{"All"}, policy.Conditions.Applications.IncludeApplications)

	// The recorded step result carries the final exclusion set.
	var caResult *StepResult
	for i := range result.Steps {
		if result.Steps[i].Kind == StepConditionalAccess {
			caResult = &result.Steps[i]
		}
	}
	require.NotNil(t, caResult)
	assert.Contains(t, caResult.Exclusions, "emergency-id")

	// Method updates carry the same exclusion.
	changes, ok := dir.methodUpdates["Fido2"]
	require.True(t, ok)
	targets, ok := changes["excludeTargets"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, targets, 1)
	assert.Equal(t, "emergency-id", targets[0]["id"])
}

func TestApply_SecondRunIsIdempotent(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["emergency-access@contoso.com"] = graph.User{
		ID: "existing-id", UserPrincipalName: "emergency-access@contoso.com", AccountEnabled: true,
	}
	dir.addRoleErr = graph.FromStatus(409, "one or more added object references already exist")
	dir.policies = []graph.ConditionalAccessPolicy{{ID: "p1", DisplayName: "require-mfa"}}
	dir.authzPolicy = graph.AuthorizationPolicy{AllowedToUseSSPR: true}
	dir.ssprPolicy = graph.SSPRPolicy{NumberOfMethodsRequired: 2}
	dir.methodConfigs = []graph.AuthenticationMethodConfig{{ID: "Fido2", State: "enabled"}}
	dir.groupSettings = []graph.GroupSetting{{ID: "s1", DisplayName: "Password Rule Settings"}}
	dir.brandingLocs = []graph.BrandingLocalization{{BackgroundColor: "#112233"}}

	result := New(dir).Apply(context.Background(), fullPlan(t))

	require.Len(t, result.Steps, 6)
	for _, sr := range result.Steps {
		assert.Equal(t, OutcomeAlreadyExists, sr.Outcome, "step %s: %s", sr.StepID, sr.Message)
	}
	assert.False(t, result.Emergency.Created)
	assert.Empty(t, result.Emergency.Password)
	assert.Empty(t, dir.createdUsers)
	assert.Empty(t, dir.createdPolicies)
	assert.Empty(t, dir.enabledCalls)
}

func TestApply_SSPRMethodsRequiredSubmitted(t *testing.T) {
	dir := newFakeDirectory()
	New(dir).Apply(context.Background(), fullPlan(t))

	require.Len(t, dir.authzUpdates, 1)
	assert.Equal(t, map[string]any{"allowedToUseSSPR": true}, dir.authzUpdates[0])
	require.Len(t, dir.ssprUpdates, 1)
	assert.Equal(t, map[string]any{"numberOfMethodsRequired": 2}, dir.ssprUpdates[0])
}

func TestApply_SSPRMethodsAlreadyAligned(t *testing.T) {
	// Enablement differs but the method count is already right; only the
	// flag is written.
	dir := newFakeDirectory()
	dir.ssprPolicy = graph.SSPRPolicy{NumberOfMethodsRequired: 2}

	plan, err := NewPlan(snapshotWithOrg(), []*template.Template{
		templateFor(template.CategorySSPR, "sspr"),
	})
	require.NoError(t, err)
	result := New(dir).Apply(context.Background(), plan)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, OutcomeCreated, result.Steps[1].Outcome)
	assert.Len(t, dir.authzUpdates, 1)
	assert.Empty(t, dir.ssprUpdates)
}

func TestApply_RepairsDisabledEmergencyAccount(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["emergency-access@contoso.com"] = graph.User{
		ID: "existing-id", UserPrincipalName: "emergency-access@contoso.com", AccountEnabled: false,
	}

	plan, err := NewPlan(snapshotWithOrg(), nil)
	require.NoError(t, err)
	result := New(dir).Apply(context.Background(), plan)

	require.Len(t, result.Steps, 1)
	assert.Equal(t, OutcomeAlreadyExists, result.Steps[0].Outcome)
	require.Len(t, dir.enabledCalls, 1)
	assert.Equal(t, enabledCall{"existing-id", true}, dir.enabledCalls[0])
	assert.Equal(t, []string{"existing-id"}, dir.roleMemberAdds)
	assert.Empty(t, result.Emergency.Password)
	assert.False(t, result.Emergency.Created)
	assert.Equal(t, "existing-id", result.Emergency.ID)
}

func TestApply_EmergencyFailureSkipsDependents(t *testing.T) {
	dir := newFakeDirectory()
	dir.lookupErr = graph.FromStatus(403, "insufficient privileges")

	result := New(dir).Apply(context.Background(), fullPlan(t))

	require.Len(t, result.Steps, 6)
	assert.Equal(t, OutcomeFailed, result.Steps[0].Outcome)

	for _, sr := range result.Steps[1:5] {
		assert.Equal(t, OutcomeSkipped, sr.Outcome, "step %s", sr.StepID)
		assert.Contains(t, sr.Message, "depends on emergency-account")
	}

	// Branding has no dependency and still runs.
	branding := result.Steps[5]
	assert.Equal(t, StepBranding, branding.Kind)
	assert.Equal(t, OutcomeCreated, branding.Outcome)
	assert.Len(t, dir.brandingUpdates, 1)
}

func TestApply_CancelledContextSkipsAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := newFakeDirectory()
	result := New(dir).Apply(ctx, fullPlan(t))

	require.Len(t, result.Steps, 6)
	for _, sr := range result.Steps {
		assert.Equal(t, OutcomeSkipped, sr.Outcome)
		assert.Equal(t, "run cancelled", sr.Message)
	}
	assert.Empty(t, dir.createdUsers)
	assert.Empty(t, dir.createdPolicies)
}

func TestApply_PasswordProtectionValues(t *testing.T) {
	dir := newFakeDirectory()
	New(dir).Apply(context.Background(), fullPlan(t))

	require.Len(t, dir.createdSettings, 1)
	setting := dir.createdSettings[0]
	assert.Equal(t, "Password Rule Settings", setting.DisplayName)
	assert.Equal(t, passwordRuleSettingsTemplateID, setting.TemplateID)

	values := map[string]string{}
	for _, v := range setting.Values {
		values[v.Name] = v.Value
	}
	assert.Equal(t, "10", values["LockoutThreshold"])
	assert.Equal(t, "60", values["LockoutDurationInSeconds"])
	assert.Equal(t, "True", values["EnableBannedPasswordCheck"])
}

func TestResult_PasswordNeverSerialized(t *testing.T) {
	result := &Result{
		Emergency: EmergencyAccount{
			ID:                "emergency-id",
			UserPrincipalName: "emergency-access@contoso.com",
			Created:           true,
			Password:          "Sup3r-Secret-Value!!",
		},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Sup3r-Secret-Value")
	assert.NotContains(t, string(data), "password")
	assert.Contains(t, string(data), "emergency-access@contoso.com")
}
