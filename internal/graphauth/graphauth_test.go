package graphauth

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestLogin_MissingTenantID(t *testing.T) {
	_, err := Login(context.Background(), Options{
		TenantID: "",
	})
	if err == nil {
		t.Fatal("expected error for missing tenant ID")
	}
}

func TestAuthError_Format(t *testing.T) {
	err := &AuthError{
		TenantID: "test-tenant-id",
	}
	s := err.Error()
	if s == "" {
		t.Error("expected non-empty error string")
	}
	if len(s) < 50 {
		t.Error("expected detailed error message with setup instructions")
	}
	if !strings.Contains(s, "az login --tenant test-tenant-id") {
		t.Error("expected CLI login instructions with tenant ID")
	}
	if !strings.Contains(s, "Policy.ReadWrite.ConditionalAccess") {
		t.Error("expected Graph permission guidance for harden")
	}
}

func TestDetectTenantID_Success(t *testing.T) {
	original := commandRunner
	defer func() { commandRunner = original }()

	commandRunner = func(name string, args ...string) ([]byte, error) {
		return []byte("72f988bf-86f1-41af-91ab-2d7cd011db47\n"), nil
	}

	tid, err := DetectTenantID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tid != "72f988bf-86f1-41af-91ab-2d7cd011db47" {
		t.Errorf("got %q, want 72f988bf-86f1-41af-91ab-2d7cd011db47", tid)
	}
}

func TestDetectTenantID_CLINotAvailable(t *testing.T) {
	original := commandRunner
	defer func() { commandRunner = original }()

	commandRunner = func(name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("exec: az not found")
	}

	_, err := DetectTenantID()
	if err == nil {
		t.Fatal("expected error when az CLI not available")
	}
}

func TestDetectTenantID_EmptyOutput(t *testing.T) {
	original := commandRunner
	defer func() { commandRunner = original }()

	commandRunner = func(name string, args ...string) ([]byte, error) {
		return []byte("  \n"), nil
	}

	_, err := DetectTenantID()
	if err == nil {
		t.Fatal("expected error for empty tenant ID")
	}
}
