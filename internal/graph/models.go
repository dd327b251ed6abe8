package graph

import "time"

// Organization identifies the tenant under assessment.
type Organization struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	PrimaryDomain string `json:"primaryDomain"`
}

// ConditionalAccessPolicy mirrors the Graph conditionalAccessPolicy resource.
// The condition tree is kept fully typed so exported snapshots preserve it.
type ConditionalAccessPolicy struct {
	ID            string                      `json:"id,omitempty"`
	DisplayName   string                      `json:"displayName"`
	State         string                      `json:"state"`
	Conditions    ConditionalAccessConditions `json:"conditions"`
	GrantControls *GrantControls              `json:"grantControls,omitempty"`
	CreatedAt     *time.Time                  `json:"createdDateTime,omitempty"`
	ModifiedAt    *time.Time                  `json:"modifiedDateTime,omitempty"`
}

// ConditionalAccessConditions holds the who/what/where selectors of a policy.
type ConditionalAccessConditions struct {
	Users        ConditionalAccessUsers        `json:"users"`
	Applications ConditionalAccessApplications `json:"applications"`
	ClientApps   []string                      `json:"clientAppTypes,omitempty"`
	Locations    *ConditionalAccessLocations   `json:"locations,omitempty"`
	Platforms    *ConditionalAccessPlatforms   `json:"platforms,omitempty"`
	SignInRisks  []string                      `json:"signInRiskLevels,omitempty"`
}

// ConditionalAccessUsers selects included and excluded identities.
type ConditionalAccessUsers struct {
	IncludeUsers  []string `json:"includeUsers,omitempty"`
	ExcludeUsers  []string `json:"excludeUsers,omitempty"`
	IncludeGroups []string `json:"includeGroups,omitempty"`
	ExcludeGroups []string `json:"excludeGroups,omitempty"`
	IncludeRoles  []string `json:"includeRoles,omitempty"`
	ExcludeRoles  []string `json:"excludeRoles,omitempty"`
}

// ConditionalAccessApplications selects target applications. It carries yaml
// tags because templates embed it directly.
type ConditionalAccessApplications struct {
	IncludeApplications []string `json:"includeApplications,omitempty" yaml:"includeApplications,omitempty"`
	ExcludeApplications []string `json:"excludeApplications,omitempty" yaml:"excludeApplications,omitempty"`
	IncludeUserActions  []string `json:"includeUserActions,omitempty" yaml:"includeUserActions,omitempty"`
}

// ConditionalAccessLocations selects named locations.
type ConditionalAccessLocations struct {
	IncludeLocations []string `json:"includeLocations,omitempty"`
	ExcludeLocations []string `json:"excludeLocations,omitempty"`
}

// ConditionalAccessPlatforms selects device platforms.
type ConditionalAccessPlatforms struct {
	IncludePlatforms []string `json:"includePlatforms,omitempty"`
	ExcludePlatforms []string `json:"excludePlatforms,omitempty"`
}

// GrantControls are the controls a matching sign-in must satisfy. It carries
// yaml tags because templates embed it directly.
type GrantControls struct {
	Operator        string   `json:"operator" yaml:"operator"`
	BuiltInControls []string `json:"builtInControls,omitempty" yaml:"builtInControls,omitempty"`
}

// User is the subset of the Graph user resource the tool touches.
type User struct {
	ID                string `json:"id,omitempty"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	AccountEnabled    bool   `json:"accountEnabled"`
}

// UserRegistrationDetail reports one user's MFA registration posture.
type UserRegistrationDetail struct {
	ID                string   `json:"id"`
	UserPrincipalName string   `json:"userPrincipalName"`
	IsMFACapable      bool     `json:"isMfaCapable"`
	IsMFARegistered   bool     `json:"isMfaRegistered"`
	IsSSPRCapable     bool     `json:"isSsprCapable"`
	IsSSPRRegistered  bool     `json:"isSsprRegistered"`
	MethodsRegistered []string `json:"methodsRegistered,omitempty"`
}

// AuthenticationMethodConfig is one entry of the tenant's authentication
// methods policy (authenticator, FIDO2, SMS, temporary access pass, ...).
type AuthenticationMethodConfig struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// SecureScore is the platform-computed posture rating.
type SecureScore struct {
	ID           string    `json:"id"`
	CurrentScore float64   `json:"currentScore"`
	MaxScore     float64   `json:"maxScore"`
	CreatedAt    time.Time `json:"createdDateTime"`
}

// SignInEvent is one sign-in log entry; only failures are collected.
type SignInEvent struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"createdDateTime"`
	UserDisplayName   string    `json:"userDisplayName"`
	UserPrincipalName string    `json:"userPrincipalName"`
	AppDisplayName    string    `json:"appDisplayName"`
	IPAddress         string    `json:"ipAddress"`
	ErrorCode         int       `json:"errorCode"`
	FailureReason     string    `json:"failureReason,omitempty"`
}

// BrandingLocalization is one localized company-branding entry.
type BrandingLocalization struct {
	ID                 string `json:"id"`
	BackgroundColor    string `json:"backgroundColor,omitempty"`
	BackgroundImageURL string `json:"backgroundImageRelativeUrl,omitempty"`
	BannerLogoURL      string `json:"bannerLogoRelativeUrl,omitempty"`
	SignInPageText     string `json:"signInPageText,omitempty"`
	SquareLogoURL      string `json:"squareLogoRelativeUrl,omitempty"`
	UsernameHintText   string `json:"usernameHintText,omitempty"`
}

// DirectoryRole is an activated directory role.
type DirectoryRole struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	RoleTemplateID string `json:"roleTemplateId"`
}

// GroupSetting is a tenant-wide directory setting bag (password protection
// rules live in the "Password Rule Settings" bag).
type GroupSetting struct {
	ID          string              `json:"id,omitempty"`
	DisplayName string              `json:"displayName"`
	TemplateID  string              `json:"templateId"`
	Values      []GroupSettingValue `json:"values"`
}

// GroupSettingValue is one name/value pair of a GroupSetting.
type GroupSettingValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SSPRPolicy carries the tenant's self-service password reset
// configuration, notably how many methods a user must have registered
// before resetting a password.
type SSPRPolicy struct {
	ID                      string `json:"id,omitempty"`
	NumberOfMethodsRequired int    `json:"numberOfMethodsRequired"`
}

// AuthorizationPolicy carries tenant-wide authorization settings; the SSPR
// enablement flag lives here.
type AuthorizationPolicy struct {
	ID                  string `json:"id"`
	AllowedToUseSSPR    bool   `json:"allowedToUseSSPR"`
	BlockMsolPowerShell bool   `json:"blockMsolPowerShell"`
	AllowInvitesFrom    string `json:"allowInvitesFrom,omitempty"`
}
