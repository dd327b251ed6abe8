package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/entraguard/entraguard/internal/graph"
	"github.com/entraguard/entraguard/internal/template"
)

// passwordRuleSettingsTemplateID is the directory setting template that
// carries password-protection (smart lockout / banned password) values.
const passwordRuleSettingsTemplateID = "5cf42378-d67d-4f36-ba46-e8b86229381d"

// passwordRuleSettingsName matches existing bags for idempotency.
const passwordRuleSettingsName = "Password Rule Settings"

// DirectoryWriter is the read-write slice of the directory client the
// reconciler needs. *graph.Client satisfies it.
type DirectoryWriter interface {
	UserByPrincipalName(ctx context.Context, upn string) (graph.User, error)
	CreateUser(ctx context.Context, user graph.User, password string) (graph.User, error)
	SetAccountEnabled(ctx context.Context, userID string, enabled bool) error
	DirectoryRoleByName(ctx context.Context, displayName string) (graph.DirectoryRole, error)
	AddRoleMember(ctx context.Context, roleID, userID string) error

	ListConditionalAccessPolicies(ctx context.Context) ([]graph.ConditionalAccessPolicy, error)
	CreateConditionalAccessPolicy(ctx context.Context, p graph.ConditionalAccessPolicy) (graph.ConditionalAccessPolicy, error)

	AuthorizationPolicy(ctx context.Context) (graph.AuthorizationPolicy, error)
	UpdateAuthorizationPolicy(ctx context.Context, changes map[string]any) error
	SSPRPolicy(ctx context.Context) (graph.SSPRPolicy, error)
	UpdateSSPRPolicy(ctx context.Context, changes map[string]any) error

	ListAuthenticationMethodConfigs(ctx context.Context) ([]graph.AuthenticationMethodConfig, error)
	UpdateAuthenticationMethodConfig(ctx context.Context, id string, changes map[string]any) error

	ListGroupSettings(ctx context.Context) ([]graph.GroupSetting, error)
	CreateGroupSetting(ctx context.Context, setting graph.GroupSetting) (graph.GroupSetting, error)

	ListBrandingLocalizations(ctx context.Context, organizationID string) ([]graph.BrandingLocalization, error)
	UpdateBranding(ctx context.Context, organizationID string, changes map[string]any) error
}

// Outcome is one step's result.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "alreadyExists"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailed        Outcome = "failed"
)

// StepResult records what happened to one plan step. Exclusions is the
// final exclusion set the step was applied with, emergency account
// included.
type StepResult struct {
	StepID     string   `json:"stepId"`
	Kind       StepKind `json:"kind"`
	Outcome    Outcome  `json:"outcome"`
	Message    string   `json:"message,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
}

// EmergencyAccount reports the resolved break-glass account. Password is
// set only when this run created the account; it is returned to the caller
// once and deliberately excluded from serialization.
type EmergencyAccount struct {
	ID                string `json:"id"`
	UserPrincipalName string `json:"userPrincipalName"`
	Created           bool   `json:"created"`
	Password          string `json:"-"`
}

// Result is the per-step outcome collection of one Apply.
type Result struct {
	Steps     []StepResult     `json:"steps"`
	Emergency EmergencyAccount `json:"emergencyAccount"`
}

// Established reports whether the emergency account was resolved or
// created this run.
func (r *Result) Established() bool {
	return r.Emergency.ID != ""
}

// CreatedCount counts steps that wrote a new resource.
func (r *Result) CreatedCount() int { return r.count(OutcomeCreated) }

// FailedCount counts steps whose remote write failed.
func (r *Result) FailedCount() int { return r.count(OutcomeFailed) }

// SkippedCount counts steps that were never attempted.
func (r *Result) SkippedCount() int { return r.count(OutcomeSkipped) }

func (r *Result) count(o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// Reconciler applies plans against the directory. Steps run strictly
// sequentially: later steps read state created by earlier ones.
type Reconciler struct {
	client DirectoryWriter
}

// New creates a reconciler over a directory client.
func New(client DirectoryWriter) *Reconciler {
	return &Reconciler{client: client}
}

// Apply executes the plan. A step's failure does not abort later
// independent steps; steps depending on a failed or skipped step are
// marked skipped and never attempted. Cancellation leaves applied steps in
// place and reports the remainder as skipped.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) *Result {
	result := &Result{Emergency: EmergencyAccount{UserPrincipalName: plan.EmergencyUPN}}
	incomplete := make(map[string]bool)

	// Live policy list fetched once per run for displayName matching.
	var existingPolicies []graph.ConditionalAccessPolicy
	var policiesErr error
	policiesFetched := false

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			incomplete[step.ID] = true
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID, Kind: step.Kind, Outcome: OutcomeSkipped, Message: "run cancelled",
			})
			continue
		}

		if dep := firstIncompleteDep(step, incomplete); dep != "" {
			incomplete[step.ID] = true
			result.Steps = append(result.Steps, StepResult{
				StepID: step.ID, Kind: step.Kind, Outcome: OutcomeSkipped,
				Message: fmt.Sprintf("depends on %s, which did not complete", dep),
			})
			continue
		}

		// The emergency account is excluded from every access-restricting
		// write of this run, without exception.
		exclusions := step.Exclusions
		if step.AccessRestricting && result.Emergency.ID != "" {
			exclusions = appendUnique(exclusions, result.Emergency.ID)
		}

		var outcome Outcome
		var err error
		switch step.Kind {
		case StepEmergencyAccount:
			outcome, err = r.ensureEmergencyAccount(ctx, plan, result)
		case StepConditionalAccess:
			if !policiesFetched {
				existingPolicies, policiesErr = r.client.ListConditionalAccessPolicies(ctx)
				policiesFetched = true
			}
			outcome, err = r.applyConditionalAccess(ctx, step, exclusions, existingPolicies, policiesErr)
		case StepSSPR:
			outcome, err = r.applySSPR(ctx, step)
		case StepAuthenticationMethods:
			outcome, err = r.applyAuthenticationMethods(ctx, step, exclusions)
		case StepPasswordProtection:
			outcome, err = r.applyPasswordProtection(ctx, step)
		case StepBranding:
			outcome, err = r.applyBranding(ctx, plan.Organization.ID, step)
		default:
			outcome, err = OutcomeFailed, fmt.Errorf("unknown step kind %q", step.Kind)
		}

		sr := StepResult{StepID: step.ID, Kind: step.Kind, Outcome: outcome, Exclusions: exclusions}
		if err != nil {
			sr.Outcome = OutcomeFailed
			sr.Message = err.Error()
			incomplete[step.ID] = true
		}
		result.Steps = append(result.Steps, sr)
	}
	return result
}

func firstIncompleteDep(step Step, incomplete map[string]bool) string {
	for _, dep := range step.DependsOn {
		if incomplete[dep] {
			return dep
		}
	}
	return ""
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(append([]string{}, list...), value)
}

// ── Step executors ──────────────────────────────────────────

// ensureEmergencyAccount resolves the break-glass account, creating it only
// when absent. A pre-existing account is repaired: re-enabled when disabled
// and confirmed to hold the privileged role.
func (r *Reconciler) ensureEmergencyAccount(ctx context.Context, plan *Plan, result *Result) (Outcome, error) {
	existing, err := r.client.UserByPrincipalName(ctx, plan.EmergencyUPN)
	switch {
	case err == nil:
		result.Emergency.ID = existing.ID
		if !existing.AccountEnabled {
			if err := r.client.SetAccountEnabled(ctx, existing.ID, true); err != nil {
				return OutcomeFailed, fmt.Errorf("re-enabling emergency account: %w", err)
			}
		}
		if err := r.ensurePrivilegedRole(ctx, existing.ID); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeAlreadyExists, nil

	case graph.IsNotFound(err):
		password, genErr := GeneratePassword(MinPasswordLength)
		if genErr != nil {
			return OutcomeFailed, genErr
		}
		created, createErr := r.client.CreateUser(ctx, graph.User{
			DisplayName:       EmergencyAccountDisplayName,
			UserPrincipalName: plan.EmergencyUPN,
			AccountEnabled:    false,
		}, password)
		if createErr != nil {
			return OutcomeFailed, fmt.Errorf("creating emergency account: %w", createErr)
		}
		if err := r.ensurePrivilegedRole(ctx, created.ID); err != nil {
			return OutcomeFailed, err
		}
		if err := r.client.SetAccountEnabled(ctx, created.ID, true); err != nil {
			return OutcomeFailed, fmt.Errorf("enabling emergency account: %w", err)
		}
		result.Emergency.ID = created.ID
		result.Emergency.Created = true
		result.Emergency.Password = password
		return OutcomeCreated, nil

	default:
		return OutcomeFailed, fmt.Errorf("looking up emergency account: %w", err)
	}
}

func (r *Reconciler) ensurePrivilegedRole(ctx context.Context, userID string) error {
	role, err := r.client.DirectoryRoleByName(ctx, privilegedRoleName)
	if err != nil {
		return fmt.Errorf("resolving %s role: %w", privilegedRoleName, err)
	}
	if err := r.client.AddRoleMember(ctx, role.ID, userID); err != nil {
		// Conflict (and the API's "reference already exists" validation
		// answer) means the role is already held.
		if kind := graph.KindOf(err); kind == graph.KindConflict || kind == graph.KindValidation {
			return nil
		}
		return fmt.Errorf("assigning %s role: %w", privilegedRoleName, err)
	}
	return nil
}

func (r *Reconciler) applyConditionalAccess(ctx context.Context, step Step, exclusions []string, existing []graph.ConditionalAccessPolicy, listErr error) (Outcome, error) {
	if listErr != nil {
		return OutcomeFailed, fmt.Errorf("listing existing policies: %w", listErr)
	}
	spec := step.Template.Spec
	for _, p := range existing {
		if p.DisplayName == spec.DisplayName {
			return OutcomeAlreadyExists, nil
		}
	}

	includes, err := template.ResolveTargets(spec.IncludeTargets)
	if err != nil {
		return OutcomeFailed, err
	}

	policy := graph.ConditionalAccessPolicy{
		DisplayName: spec.DisplayName,
		State:       policyState(spec.State),
		Conditions: graph.ConditionalAccessConditions{
			Users: graph.ConditionalAccessUsers{
				IncludeUsers: includes,
				ExcludeUsers: exclusions,
			},
		},
		GrantControls: spec.GrantControls,
	}
	if spec.Conditions != nil {
		policy.Conditions.Applications = spec.Conditions.Applications
		policy.Conditions.ClientApps = spec.Conditions.ClientAppTypes
		policy.Conditions.SignInRisks = spec.Conditions.SignInRisks
	}
	if len(policy.Conditions.Applications.IncludeApplications) == 0 {
		policy.Conditions.Applications.IncludeApplications = []string{"All"}
	}

	if _, err := r.client.CreateConditionalAccessPolicy(ctx, policy); err != nil {
		if graph.IsConflict(err) {
			return OutcomeAlreadyExists, nil
		}
		return OutcomeFailed, err
	}
	return OutcomeCreated, nil
}

// applySSPR aligns both halves of the reset configuration: the tenant-wide
// enablement flag on the authorization policy and the number of registered
// methods required by the password reset policy.
func (r *Reconciler) applySSPR(ctx context.Context, step Step) (Outcome, error) {
	current, err := r.client.AuthorizationPolicy(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("reading authorization policy: %w", err)
	}

	changed := false
	want := step.Template.Spec.State == "enabled"
	if current.AllowedToUseSSPR != want {
		err := r.client.UpdateAuthorizationPolicy(ctx, map[string]any{"allowedToUseSSPR": want})
		if err != nil && !graph.IsConflict(err) {
			return OutcomeFailed, err
		}
		if err == nil {
			changed = true
		}
	}

	if spec := step.Template.Spec.SSPR; spec != nil {
		policy, err := r.client.SSPRPolicy(ctx)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("reading password reset policy: %w", err)
		}
		if policy.NumberOfMethodsRequired != spec.NumberOfMethodsRequired {
			err := r.client.UpdateSSPRPolicy(ctx, map[string]any{
				"numberOfMethodsRequired": spec.NumberOfMethodsRequired,
			})
			if err != nil && !graph.IsConflict(err) {
				return OutcomeFailed, err
			}
			if err == nil {
				changed = true
			}
		}
	}

	if !changed {
		return OutcomeAlreadyExists, nil
	}
	return OutcomeCreated, nil
}

func (r *Reconciler) applyAuthenticationMethods(ctx context.Context, step Step, exclusions []string) (Outcome, error) {
	existing, err := r.client.ListAuthenticationMethodConfigs(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("listing method configs: %w", err)
	}
	current := make(map[string]string, len(existing))
	for _, c := range existing {
		current[c.ID] = c.State
	}

	excludeTargets := make([]map[string]any, 0, len(exclusions))
	for _, id := range exclusions {
		excludeTargets = append(excludeTargets, map[string]any{"targetType": "user", "id": id})
	}

	changed := false
	for _, method := range step.Template.Spec.AuthenticationMethods {
		if current[method.ID] == method.State {
			continue
		}
		changes := map[string]any{"state": method.State}
		if len(excludeTargets) > 0 {
			changes["excludeTargets"] = excludeTargets
		}
		if err := r.client.UpdateAuthenticationMethodConfig(ctx, method.ID, changes); err != nil {
			return OutcomeFailed, fmt.Errorf("updating method %s: %w", method.ID, err)
		}
		changed = true
	}
	if !changed {
		return OutcomeAlreadyExists, nil
	}
	return OutcomeCreated, nil
}

func (r *Reconciler) applyPasswordProtection(ctx context.Context, step Step) (Outcome, error) {
	settings, err := r.client.ListGroupSettings(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("listing group settings: %w", err)
	}
	for _, s := range settings {
		if s.DisplayName == passwordRuleSettingsName || s.TemplateID == passwordRuleSettingsTemplateID {
			return OutcomeAlreadyExists, nil
		}
	}

	pp := step.Template.Spec.PasswordProtection
	setting := graph.GroupSetting{
		DisplayName: passwordRuleSettingsName,
		TemplateID:  passwordRuleSettingsTemplateID,
		Values: []graph.GroupSettingValue{
			{Name: "LockoutThreshold", Value: fmt.Sprintf("%d", pp.LockoutThreshold)},
			{Name: "LockoutDurationInSeconds", Value: fmt.Sprintf("%d", pp.LockoutDurationInSeconds)},
			{Name: "BannedPasswordList", Value: strings.Join(pp.BannedPasswords, "\t")},
			{Name: "EnableBannedPasswordCheck", Value: "True"},
		},
	}
	if _, err := r.client.CreateGroupSetting(ctx, setting); err != nil {
		if graph.IsConflict(err) {
			return OutcomeAlreadyExists, nil
		}
		return OutcomeFailed, err
	}
	return OutcomeCreated, nil
}

func (r *Reconciler) applyBranding(ctx context.Context, organizationID string, step Step) (Outcome, error) {
	branding := step.Template.Spec.Branding
	changes := map[string]any{}
	if branding.BackgroundColor != "" {
		changes["backgroundColor"] = branding.BackgroundColor
	}
	if branding.SignInPageText != "" {
		changes["signInPageText"] = branding.SignInPageText
	}
	if branding.UsernameHintText != "" {
		changes["usernameHintText"] = branding.UsernameHintText
	}
	if len(changes) == 0 {
		return OutcomeAlreadyExists, nil
	}

	localizations, err := r.client.ListBrandingLocalizations(ctx, organizationID)
	if err == nil && len(localizations) > 0 && brandingMatches(localizations[0], branding) {
		return OutcomeAlreadyExists, nil
	}

	if err := r.client.UpdateBranding(ctx, organizationID, changes); err != nil {
		if graph.IsConflict(err) {
			return OutcomeAlreadyExists, nil
		}
		return OutcomeFailed, err
	}
	return OutcomeCreated, nil
}

func brandingMatches(loc graph.BrandingLocalization, want *template.BrandingSettings) bool {
	if want.BackgroundColor != "" && loc.BackgroundColor != want.BackgroundColor {
		return false
	}
	if want.SignInPageText != "" && loc.SignInPageText != want.SignInPageText {
		return false
	}
	if want.UsernameHintText != "" && loc.UsernameHintText != want.UsernameHintText {
		return false
	}
	return true
}

func policyState(state string) string {
	switch state {
	case "reportOnly":
		return "enabledForReportingButNotEnforced"
	default:
		return state
	}
}
