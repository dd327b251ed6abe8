// Package template loads and validates the declarative configuration
// templates that drive reconciliation. Templates are pure data; the store
// performs no remote calls.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/entraguard/entraguard/internal/graph"
)

// Category selects which reconciliation step a template feeds.
type Category string

const (
	CategoryConditionalAccess     Category = "conditionalAccess"
	CategorySSPR                  Category = "sspr"
	CategoryAuthenticationMethods Category = "authenticationMethods"
	CategoryPasswordProtection    Category = "passwordProtection"
	CategoryBranding              Category = "branding"
)

// Template is one named, versioned desired-state document.
type Template struct {
	APIVersion string   `yaml:"apiVersion" json:"apiVersion"` // "entraguard/v1"
	Kind       string   `yaml:"kind" json:"kind"`             // "Template"
	Metadata   Metadata `yaml:"metadata" json:"metadata"`
	Spec       Spec     `yaml:"spec" json:"spec"`
}

// Metadata identifies and categorizes a template.
type Metadata struct {
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`
	Version  string   `yaml:"version,omitempty" json:"version,omitempty"`
}

// Spec is the desired resource state. DisplayName, State and the target
// sets are required for every category; the settings blocks are
// category-specific.
type Spec struct {
	DisplayName    string   `yaml:"displayName" json:"displayName"`
	State          string   `yaml:"state" json:"state"` // enabled | disabled | reportOnly
	IncludeTargets []string `yaml:"includeTargets" json:"includeTargets"`
	ExcludeTargets []string `yaml:"excludeTargets" json:"excludeTargets"`

	Conditions            *Conditions                 `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	GrantControls         *graph.GrantControls        `yaml:"grantControls,omitempty" json:"grantControls,omitempty"`
	SSPR                  *SSPRSettings               `yaml:"sspr,omitempty" json:"sspr,omitempty"`
	AuthenticationMethods []AuthenticationMethodState `yaml:"authenticationMethods,omitempty" json:"authenticationMethods,omitempty"`
	PasswordProtection    *PasswordProtectionSettings `yaml:"passwordProtection,omitempty" json:"passwordProtection,omitempty"`
	Branding              *BrandingSettings           `yaml:"branding,omitempty" json:"branding,omitempty"`
}

// Conditions mirrors the non-user parts of a conditional-access condition
// tree; user targets come from Include/ExcludeTargets.
type Conditions struct {
	Applications   graph.ConditionalAccessApplications `yaml:"applications" json:"applications"`
	ClientAppTypes []string                            `yaml:"clientAppTypes,omitempty" json:"clientAppTypes,omitempty"`
	SignInRisks    []string                            `yaml:"signInRiskLevels,omitempty" json:"signInRiskLevels,omitempty"`
}

// SSPRSettings configures self-service password reset.
type SSPRSettings struct {
	NumberOfMethodsRequired int `yaml:"numberOfMethodsRequired" json:"numberOfMethodsRequired"`
}

// AuthenticationMethodState is the desired state of one method config.
type AuthenticationMethodState struct {
	ID    string `yaml:"id" json:"id"`
	State string `yaml:"state" json:"state"`
}

// PasswordProtectionSettings configures smart lockout and banned passwords.
type PasswordProtectionSettings struct {
	LockoutThreshold         int      `yaml:"lockoutThreshold" json:"lockoutThreshold"`
	LockoutDurationInSeconds int      `yaml:"lockoutDurationInSeconds" json:"lockoutDurationInSeconds"`
	BannedPasswords          []string `yaml:"bannedPasswords,omitempty" json:"bannedPasswords,omitempty"`
}

// BrandingSettings configures the default sign-in page localization.
type BrandingSettings struct {
	BackgroundColor  string `yaml:"backgroundColor,omitempty" json:"backgroundColor,omitempty"`
	SignInPageText   string `yaml:"signInPageText,omitempty" json:"signInPageText,omitempty"`
	UsernameHintText string `yaml:"usernameHintText,omitempty" json:"usernameHintText,omitempty"`
}

// AccessRestricting reports whether applying this template can lock
// identities out. Every such template must carry the emergency account in
// its exclusion set before submission.
func (t *Template) AccessRestricting() bool {
	switch t.Metadata.Category {
	case CategoryConditionalAccess, CategorySSPR, CategoryAuthenticationMethods, CategoryPasswordProtection:
		return true
	default:
		return false
	}
}

// ── Target placeholders ─────────────────────────────────────

// targetPlaceholders maps template-level group placeholders to the concrete
// directory selectors the remote API understands.
var targetPlaceholders = map[string]string{
	"all_users":  "All",
	"all_guests": "GuestsOrExternalUsers",
	"none":       "None",
}

var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ResolveTarget turns a target descriptor into a concrete selector:
// known placeholders map to their directory value, object ids pass through,
// anything else is rejected.
func ResolveTarget(target string) (string, error) {
	if resolved, ok := targetPlaceholders[strings.ToLower(target)]; ok {
		return resolved, nil
	}
	if guidPattern.MatchString(target) {
		return target, nil
	}
	return "", fmt.Errorf("unknown target placeholder %q", target)
}

// ResolveTargets resolves a whole target list, failing on the first unknown
// placeholder.
func ResolveTargets(targets []string) ([]string, error) {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		resolved, err := ResolveTarget(t)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}
