package exitcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/entraguard/entraguard/internal/graphauth"
	"github.com/entraguard/entraguard/internal/template"
)

func TestCodesAreStable(t *testing.T) {
	if OK != 0 || Generic != 1 || Validation != 2 || Auth != 3 || Degraded != 4 || Fatal != 5 {
		t.Error("exit codes changed; scripts depend on these values")
	}
}

func TestOf_Nil(t *testing.T) {
	if code := Of(nil); code != OK {
		t.Errorf("Of(nil) = %d, want %d", code, OK)
	}
}

func TestOf_CodedError(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"generic", Generic},
		{"validation", Validation},
		{"auth", Auth},
		{"degraded", Degraded},
		{"fatal", Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.code, fmt.Errorf("some error"))
			if got := Of(err); got != tt.code {
				t.Errorf("Of(Wrap(%d, ...)) = %d, want %d", tt.code, got, tt.code)
			}
		})
	}
}

func TestOf_WrappedCodedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(Degraded, errors.New("inner")))
	if got := Of(err); got != Degraded {
		t.Errorf("Of(wrapped) = %d, want %d", got, Degraded)
	}
}

func TestOf_AuthError(t *testing.T) {
	err := fmt.Errorf("login: %w", &graphauth.AuthError{TenantID: "t"})
	if got := Of(err); got != Auth {
		t.Errorf("Of(AuthError) = %d, want %d", got, Auth)
	}
}

func TestOf_ValidationErrors(t *testing.T) {
	err := template.ValidationErrors{{Template: "x", Field: "spec.state", Description: "bad"}}
	if got := Of(err); got != Validation {
		t.Errorf("Of(ValidationErrors) = %d, want %d", got, Validation)
	}
}

func TestOf_StringFallback(t *testing.T) {
	if got := Of(errors.New("could not obtain credential")); got != Auth {
		t.Errorf("credential error = %d, want %d", got, Auth)
	}
	if got := Of(errors.New("something broke")); got != Generic {
		t.Errorf("unclassified error = %d, want %d", got, Generic)
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(Fatal, nil) != nil {
		t.Error("Wrap(code, nil) should be nil")
	}
}
