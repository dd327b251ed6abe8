package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// schemaBytes holds the embedded JSON Schema for template documents. It is
// registered by the schemas package init or by SetSchema in tests.
var schemaBytes []byte

// SetSchema registers the JSON Schema used for structural validation.
func SetSchema(data []byte) {
	schemaBytes = data
}

// ValidationError is one template validation failure.
type ValidationError struct {
	Template    string `json:"template"`
	Field       string `json:"field"`
	Description string `json:"description"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("template %s: %s: %s", e.Template, e.Field, e.Description)
}

// ValidationErrors aggregates every failure found in one document so the
// user sees all problems at once instead of fixing them one by one.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a parsed template structurally (JSON Schema) and
// semantically (typed cross checks). A template that passes is safe to hand
// to the reconciler; malformed documents never reach a remote write.
func Validate(t *Template) error {
	errs := ValidationErrors{}
	name := t.Metadata.Name
	if name == "" {
		name = "(unnamed)"
	}

	if len(schemaBytes) > 0 {
		schemaErrs, err := validateSchema(t, name)
		if err != nil {
			return err
		}
		errs = append(errs, schemaErrs...)
	}

	errs = append(errs, validateTyped(t, name)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateSchema(t *Template, name string) (ValidationErrors, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshaling template for schema validation: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("running schema validation: %w", err)
	}
	errs := ValidationErrors{}
	for _, e := range result.Errors() {
		errs = append(errs, ValidationError{Template: name, Field: e.Field(), Description: e.Description()})
	}
	return errs, nil
}

func validateTyped(t *Template, name string) ValidationErrors {
	errs := ValidationErrors{}
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Template: name, Field: field, Description: fmt.Sprintf(format, args...)})
	}

	if t.Metadata.Name == "" {
		add("metadata.name", "name is required")
	}
	switch t.Metadata.Category {
	case CategoryConditionalAccess, CategorySSPR, CategoryAuthenticationMethods, CategoryPasswordProtection, CategoryBranding:
	case "":
		add("metadata.category", "category is required")
	default:
		add("metadata.category", "unknown category %q", t.Metadata.Category)
	}

	if strings.TrimSpace(t.Spec.DisplayName) == "" {
		add("spec.displayName", "displayName is required")
	}
	switch t.Spec.State {
	case "enabled", "disabled", "reportOnly":
	case "":
		add("spec.state", "state is required")
	default:
		add("spec.state", "state must be enabled, disabled or reportOnly, got %q", t.Spec.State)
	}

	for _, target := range append(append([]string{}, t.Spec.IncludeTargets...), t.Spec.ExcludeTargets...) {
		if _, err := ResolveTarget(target); err != nil {
			add("spec.targets", "%v", err)
		}
	}

	switch t.Metadata.Category {
	case CategoryConditionalAccess:
		if len(t.Spec.IncludeTargets) == 0 {
			add("spec.includeTargets", "conditional access templates need at least one include target")
		}
		if t.Spec.GrantControls == nil || len(t.Spec.GrantControls.BuiltInControls) == 0 {
			add("spec.grantControls", "conditional access templates need at least one grant control")
		}
	case CategorySSPR:
		if t.Spec.SSPR == nil {
			add("spec.sspr", "sspr settings are required for the sspr category")
		} else if t.Spec.SSPR.NumberOfMethodsRequired < 1 {
			add("spec.sspr.numberOfMethodsRequired", "must be >= 1, got %d", t.Spec.SSPR.NumberOfMethodsRequired)
		}
	case CategoryAuthenticationMethods:
		if len(t.Spec.AuthenticationMethods) == 0 {
			add("spec.authenticationMethods", "at least one method state is required")
		}
		for _, m := range t.Spec.AuthenticationMethods {
			if m.ID == "" {
				add("spec.authenticationMethods", "method id is required")
			}
			if m.State != "enabled" && m.State != "disabled" {
				add("spec.authenticationMethods", "method %q state must be enabled or disabled", m.ID)
			}
		}
	case CategoryPasswordProtection:
		if t.Spec.PasswordProtection == nil {
			add("spec.passwordProtection", "passwordProtection settings are required")
		} else if t.Spec.PasswordProtection.LockoutThreshold < 1 {
			add("spec.passwordProtection.lockoutThreshold", "must be >= 1")
		}
	case CategoryBranding:
		if t.Spec.Branding == nil {
			add("spec.branding", "branding settings are required")
		}
	}

	return errs
}
