// Package reconcile brings a tenant's live configuration into alignment
// with declarative templates. Planning is pure; Apply executes the plan
// sequentially against the directory, idempotently and in dependency order.
package reconcile

import (
	"fmt"

	"github.com/entraguard/entraguard/internal/discovery"
	"github.com/entraguard/entraguard/internal/graph"
	"github.com/entraguard/entraguard/internal/template"
)

// Emergency-access account identity. The local-part is fixed; the domain is
// the tenant's primary domain, so the principal name is deterministic per
// tenant.
const (
	EmergencyAccountLocalPart   = "emergency-access"
	EmergencyAccountDisplayName = "Emergency Access Account"

	// privilegedRoleName is the directory's highest privileged role,
	// assigned to the emergency account on creation.
	privilegedRoleName = "Global Administrator"

	// EmergencyStepID is the plan step every access-restricting step
	// depends on.
	EmergencyStepID = "emergency-account"
)

// StepKind names the resource class a step touches.
type StepKind string

const (
	StepEmergencyAccount      StepKind = "emergencyAccount"
	StepConditionalAccess     StepKind = "conditionalAccess"
	StepSSPR                  StepKind = "sspr"
	StepAuthenticationMethods StepKind = "authenticationMethods"
	StepPasswordProtection    StepKind = "passwordProtection"
	StepBranding              StepKind = "branding"
)

// Step is one planned action. Ordering and dependencies are data, not an
// artifact of execution order, so they can be asserted directly.
type Step struct {
	ID                string             `json:"id"`
	Kind              StepKind           `json:"kind"`
	Template          *template.Template `json:"template,omitempty"`
	DependsOn         []string           `json:"dependsOn,omitempty"`
	AccessRestricting bool               `json:"accessRestricting"`
	// Exclusions is the pre-computed exclusion set from the template.
	// Apply injects the emergency account id before submission.
	Exclusions []string `json:"exclusions,omitempty"`
}

// Plan is the ordered step list for one reconciliation run.
type Plan struct {
	Organization graph.Organization `json:"organization"`
	EmergencyUPN string             `json:"emergencyUpn"`
	Steps        []Step             `json:"steps"`
}

// categoryOrder fixes execution order: the safety account first, then
// access-restricting policies, then tenant settings, then cosmetics.
var categoryOrder = []template.Category{
	template.CategoryConditionalAccess,
	template.CategorySSPR,
	template.CategoryAuthenticationMethods,
	template.CategoryPasswordProtection,
	template.CategoryBranding,
}

// NewPlan computes the ordered reconciliation plan for a snapshot and a
// template set. It fails when the tenant identity is unknown: without a
// primary domain the emergency principal name cannot be derived, and no
// access-restricting write is safe.
func NewPlan(snapshot *discovery.TenantSnapshot, templates []*template.Template) (*Plan, error) {
	if !snapshot.Organization.OK() {
		return nil, fmt.Errorf("organization identity unavailable: %s", snapshot.Organization.Failure.Message)
	}
	org := snapshot.Organization.Data
	if org.PrimaryDomain == "" {
		return nil, fmt.Errorf("tenant %s has no primary domain; cannot derive emergency account principal name", org.ID)
	}

	plan := &Plan{
		Organization: org,
		EmergencyUPN: fmt.Sprintf("%s@%s", EmergencyAccountLocalPart, org.PrimaryDomain),
	}
	plan.Steps = append(plan.Steps, Step{
		ID:   EmergencyStepID,
		Kind: StepEmergencyAccount,
	})

	for _, category := range categoryOrder {
		for _, t := range templates {
			if t.Metadata.Category != category {
				continue
			}
			exclusions, err := template.ResolveTargets(t.Spec.ExcludeTargets)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", t.Metadata.Name, err)
			}
			step := Step{
				ID:                fmt.Sprintf("%s/%s", category, t.Metadata.Name),
				Kind:              stepKindFor(category),
				Template:          t,
				AccessRestricting: t.AccessRestricting(),
				Exclusions:        exclusions,
			}
			if step.AccessRestricting {
				step.DependsOn = []string{EmergencyStepID}
			}
			plan.Steps = append(plan.Steps, step)
		}
	}
	return plan, nil
}

func stepKindFor(category template.Category) StepKind {
	switch category {
	case template.CategoryConditionalAccess:
		return StepConditionalAccess
	case template.CategorySSPR:
		return StepSSPR
	case template.CategoryAuthenticationMethods:
		return StepAuthenticationMethods
	case template.CategoryPasswordProtection:
		return StepPasswordProtection
	default:
		return StepBranding
	}
}
