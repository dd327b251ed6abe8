// Package graph is the remote directory boundary. It exposes typed
// read/list/create/update operations over tenant resources; callers treat
// it as a capability, not as the wire protocol.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Client provides typed directory operations on top of the transport.
type Client struct {
	api API
}

// NewClient wraps a transport with typed resource operations.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// ── Read operations ─────────────────────────────────────────

// Organization returns the tenant's identity, resolving the primary domain
// from the default verified domain.
func (c *Client) Organization(ctx context.Context) (Organization, error) {
	items, err := c.api.GetList(ctx, "organization", nil)
	if err != nil {
		return Organization{}, err
	}
	if len(items) == 0 {
		return Organization{}, NewError(KindNotFound, "no organization object returned")
	}
	var org struct {
		ID              string `json:"id"`
		DisplayName     string `json:"displayName"`
		VerifiedDomains []struct {
			Name      string `json:"name"`
			IsDefault bool   `json:"isDefault"`
		} `json:"verifiedDomains"`
	}
	if err := json.Unmarshal(items[0], &org); err != nil {
		return Organization{}, NewError(KindUnknown, "decoding organization: %v", err)
	}
	out := Organization{ID: org.ID, DisplayName: org.DisplayName}
	for _, d := range org.VerifiedDomains {
		if d.IsDefault {
			out.PrimaryDomain = d.Name
			break
		}
	}
	if out.PrimaryDomain == "" && len(org.VerifiedDomains) > 0 {
		out.PrimaryDomain = org.VerifiedDomains[0].Name
	}
	return out, nil
}

// ListConditionalAccessPolicies fetches the full policy collection.
func (c *Client) ListConditionalAccessPolicies(ctx context.Context) ([]ConditionalAccessPolicy, error) {
	return decodeList[ConditionalAccessPolicy](c.api, ctx, "identity/conditionalAccess/policies", nil)
}

// ListUserRegistrationDetails fetches per-user MFA/SSPR registration state.
func (c *Client) ListUserRegistrationDetails(ctx context.Context) ([]UserRegistrationDetail, error) {
	return decodeList[UserRegistrationDetail](c.api, ctx, "reports/authenticationMethods/userRegistrationDetails", nil)
}

// AuthorizationPolicy fetches the tenant authorization policy (SSPR flag).
func (c *Client) AuthorizationPolicy(ctx context.Context) (AuthorizationPolicy, error) {
	raw, err := c.api.Get(ctx, "policies/authorizationPolicy", nil)
	if err != nil {
		return AuthorizationPolicy{}, err
	}
	var out AuthorizationPolicy
	if err := json.Unmarshal(raw, &out); err != nil {
		return AuthorizationPolicy{}, NewError(KindUnknown, "decoding authorization policy: %v", err)
	}
	return out, nil
}

// SSPRPolicy fetches the self-service password reset configuration.
func (c *Client) SSPRPolicy(ctx context.Context) (SSPRPolicy, error) {
	raw, err := c.api.Get(ctx, "policies/passwordResetPolicy", nil)
	if err != nil {
		return SSPRPolicy{}, err
	}
	var out SSPRPolicy
	if err := json.Unmarshal(raw, &out); err != nil {
		return SSPRPolicy{}, NewError(KindUnknown, "decoding password reset policy: %v", err)
	}
	return out, nil
}

// ListAuthenticationMethodConfigs fetches the tenant's authentication
// method configurations.
func (c *Client) ListAuthenticationMethodConfigs(ctx context.Context) ([]AuthenticationMethodConfig, error) {
	raw, err := c.api.Get(ctx, "policies/authenticationMethodsPolicy", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Configurations []AuthenticationMethodConfig `json:"authenticationMethodConfigurations"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, NewError(KindUnknown, "decoding authentication methods policy: %v", err)
	}
	return body.Configurations, nil
}

// LatestSecureScore fetches the most recent secure score entry.
func (c *Client) LatestSecureScore(ctx context.Context) (SecureScore, error) {
	query := url.Values{"$top": []string{"1"}}
	items, err := c.api.GetList(ctx, "security/secureScores", query)
	if err != nil {
		return SecureScore{}, err
	}
	if len(items) == 0 {
		return SecureScore{}, NewError(KindNotFound, "no secure score entries available")
	}
	var out SecureScore
	if err := json.Unmarshal(items[0], &out); err != nil {
		return SecureScore{}, NewError(KindUnknown, "decoding secure score: %v", err)
	}
	return out, nil
}

// ListSignInFailures fetches failed sign-in events created at or after since.
func (c *Client) ListSignInFailures(ctx context.Context, since time.Time) ([]SignInEvent, error) {
	filter := fmt.Sprintf("createdDateTime ge %s and status/errorCode ne 0", since.UTC().Format(time.RFC3339))
	query := url.Values{"$filter": []string{filter}}
	items, err := c.api.GetList(ctx, "auditLogs/signIns", query)
	if err != nil {
		return nil, err
	}
	out := make([]SignInEvent, 0, len(items))
	for _, item := range items {
		var event struct {
			SignInEvent
			Status struct {
				ErrorCode     int    `json:"errorCode"`
				FailureReason string `json:"failureReason"`
			} `json:"status"`
		}
		if err := json.Unmarshal(item, &event); err != nil {
			return nil, NewError(KindUnknown, "decoding sign-in event: %v", err)
		}
		event.SignInEvent.ErrorCode = event.Status.ErrorCode
		event.SignInEvent.FailureReason = event.Status.FailureReason
		out = append(out, event.SignInEvent)
	}
	return out, nil
}

// ListBrandingLocalizations fetches the tenant's branding entries.
func (c *Client) ListBrandingLocalizations(ctx context.Context, organizationID string) ([]BrandingLocalization, error) {
	path := fmt.Sprintf("organization/%s/branding/localizations", organizationID)
	return decodeList[BrandingLocalization](c.api, ctx, path, nil)
}

// ── Write operations ────────────────────────────────────────

// UserByPrincipalName looks a user up by UPN. Absence maps to KindNotFound.
func (c *Client) UserByPrincipalName(ctx context.Context, upn string) (User, error) {
	raw, err := c.api.Get(ctx, "users/"+url.PathEscape(upn), nil)
	if err != nil {
		return User{}, err
	}
	var out User
	if err := json.Unmarshal(raw, &out); err != nil {
		return User{}, NewError(KindUnknown, "decoding user: %v", err)
	}
	return out, nil
}

// CreateUser creates a directory user with the given initial password.
// The password never appears in logs; it travels only in the request body.
func (c *Client) CreateUser(ctx context.Context, user User, password string) (User, error) {
	body := map[string]any{
		"displayName":       user.DisplayName,
		"userPrincipalName": user.UserPrincipalName,
		"mailNickname":      mailNickname(user.UserPrincipalName),
		"accountEnabled":    user.AccountEnabled,
		"passwordProfile": map[string]any{
			"password":                      password,
			"forceChangePasswordNextSignIn": false,
		},
	}
	raw, err := c.api.Post(ctx, "users", body)
	if err != nil {
		return User{}, err
	}
	var out User
	if err := json.Unmarshal(raw, &out); err != nil {
		return User{}, NewError(KindUnknown, "decoding created user: %v", err)
	}
	return out, nil
}

// SetAccountEnabled flips a user's enabled flag.
func (c *Client) SetAccountEnabled(ctx context.Context, userID string, enabled bool) error {
	return c.api.Patch(ctx, "users/"+userID, map[string]any{"accountEnabled": enabled})
}

// DirectoryRoleByName finds an activated directory role by display name.
func (c *Client) DirectoryRoleByName(ctx context.Context, displayName string) (DirectoryRole, error) {
	roles, err := decodeList[DirectoryRole](c.api, ctx, "directoryRoles", nil)
	if err != nil {
		return DirectoryRole{}, err
	}
	for _, role := range roles {
		if role.DisplayName == displayName {
			return role, nil
		}
	}
	return DirectoryRole{}, NewError(KindNotFound, "directory role %q is not activated", displayName)
}

// AddRoleMember assigns a directory role to a user. A conflict means the
// user already holds the role.
func (c *Client) AddRoleMember(ctx context.Context, roleID, userID string) error {
	body := map[string]any{
		"@odata.id": defaultBaseURL + "/directoryObjects/" + userID,
	}
	_, err := c.api.Post(ctx, fmt.Sprintf("directoryRoles/%s/members/$ref", roleID), body)
	return err
}

// CreateConditionalAccessPolicy creates a policy and returns it with its id.
func (c *Client) CreateConditionalAccessPolicy(ctx context.Context, p ConditionalAccessPolicy) (ConditionalAccessPolicy, error) {
	raw, err := c.api.Post(ctx, "identity/conditionalAccess/policies", p)
	if err != nil {
		return ConditionalAccessPolicy{}, err
	}
	var out ConditionalAccessPolicy
	if err := json.Unmarshal(raw, &out); err != nil {
		return ConditionalAccessPolicy{}, NewError(KindUnknown, "decoding created policy: %v", err)
	}
	return out, nil
}

// UpdateAuthorizationPolicy patches tenant-wide authorization settings.
func (c *Client) UpdateAuthorizationPolicy(ctx context.Context, changes map[string]any) error {
	return c.api.Patch(ctx, "policies/authorizationPolicy", changes)
}

// UpdateSSPRPolicy patches the self-service password reset configuration.
func (c *Client) UpdateSSPRPolicy(ctx context.Context, changes map[string]any) error {
	return c.api.Patch(ctx, "policies/passwordResetPolicy", changes)
}

// UpdateAuthenticationMethodConfig patches one authentication method entry.
func (c *Client) UpdateAuthenticationMethodConfig(ctx context.Context, id string, changes map[string]any) error {
	path := "policies/authenticationMethodsPolicy/authenticationMethodConfigurations/" + id
	return c.api.Patch(ctx, path, changes)
}

// UpdateBranding patches the default branding localization, creating it via
// the branding root when no localization exists yet.
func (c *Client) UpdateBranding(ctx context.Context, organizationID string, changes map[string]any) error {
	return c.api.Patch(ctx, fmt.Sprintf("organization/%s/branding", organizationID), changes)
}

// ListGroupSettings fetches tenant-wide directory setting bags.
func (c *Client) ListGroupSettings(ctx context.Context) ([]GroupSetting, error) {
	return decodeList[GroupSetting](c.api, ctx, "groupSettings", nil)
}

// CreateGroupSetting creates a directory setting bag from a template.
func (c *Client) CreateGroupSetting(ctx context.Context, setting GroupSetting) (GroupSetting, error) {
	raw, err := c.api.Post(ctx, "groupSettings", setting)
	if err != nil {
		return GroupSetting{}, err
	}
	var out GroupSetting
	if err := json.Unmarshal(raw, &out); err != nil {
		return GroupSetting{}, NewError(KindUnknown, "decoding created group setting: %v", err)
	}
	return out, nil
}

// ── Helpers ─────────────────────────────────────────────────

func decodeList[T any](api API, ctx context.Context, path string, query url.Values) ([]T, error) {
	items, err := api.GetList(ctx, path, query)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, NewError(KindUnknown, "decoding %s entry: %v", path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func mailNickname(upn string) string {
	for i, r := range upn {
		if r == '@' {
			return upn[:i]
		}
	}
	return upn
}
