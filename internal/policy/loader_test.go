package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePolicyFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadParsesAndValidates(t *testing.T) {
	path := writePolicyFile(t, `
version: 3
blocked_words: ["jailbreak"]
denied_topics: ["model jailbreaking"]
pii_entities: ["CREDIT_CARD"]
pii_action: ANONYMIZE
role_overrides:
  external:
    add_denied_topics: ["credit limit algorithm"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != 3 {
		t.Fatalf("expected version 3, got %d", cfg.Version)
	}
	if len(cfg.RoleOverrides["external"].AddDeniedTopics) != 1 {
		t.Fatalf("role override not parsed: %+v", cfg.RoleOverrides)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("WARDEN_TEST_TOPIC", "data exfiltration")
	path := writePolicyFile(t, `
version: 1
blocked_words: ["hack"]
denied_topics: ["${WARDEN_TEST_TOPIC}"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DeniedTopics[0] != "data exfiltration" {
		t.Fatalf("env not expanded: %q", cfg.DeniedTopics[0])
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	malformed := writePolicyFile(t, "version: [not an int")
	if _, err := Load(malformed); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for malformed yaml, got %v", err)
	}

	invalid := writePolicyFile(t, "version: 0\nblocked_words: [\"x\"]\ndenied_topics: [\"y\"]\n")
	if _, err := Load(invalid); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for version 0, got %v", err)
	}
}
