package policy

import (
	"testing"

	"github.com/cardwise/warden/pkg/types"
)

func TestResolveNormalizesAndSorts(t *testing.T) {
	cfg := Config{
		Version:      1,
		DeniedTopics: []string{"  Fraud Detection Bypass ", "pii data leakage", "fraud detection bypass"},
		BlockedWords: []string{"Bypass", "hack"},
	}

	snap := Resolve(cfg, types.RoleExternal)
	wantTopics := []string{"fraud detection bypass", "pii data leakage"}
	if len(snap.DeniedTopics) != len(wantTopics) {
		t.Fatalf("expected %v, got %v", wantTopics, snap.DeniedTopics)
	}
	for i, topic := range wantTopics {
		if snap.DeniedTopics[i] != topic {
			t.Fatalf("topic %d: expected %q, got %q", i, topic, snap.DeniedTopics[i])
		}
	}
	if snap.BlockedWords[0] != "bypass" || snap.BlockedWords[1] != "hack" {
		t.Fatalf("expected lowercase sorted words, got %v", snap.BlockedWords)
	}
}

func TestResolveAddAndRemove(t *testing.T) {
	block := PIIBlock
	cfg := Config{
		Version:      3,
		DeniedTopics: []string{"data exfiltration", "model jailbreaking"},
		BlockedWords: []string{"hack"},
		PIIEntities:  []EntityKind{EntityCreditCard, EntitySSN},
		PIIAction:    PIIAnonymize,
		RoleOverrides: map[types.Role]Override{
			types.RoleInternal: {
				RemoveDeniedTopics: []string{"model jailbreaking"},
				AddBlockedWords:    []string{"exfiltrate"},
				RemovePIIEntities:  []EntityKind{EntitySSN},
				PIIAction:          &block,
			},
		},
	}

	snap := Resolve(cfg, types.RoleInternal)
	if contains(snap.DeniedTopics, "model jailbreaking") {
		t.Fatalf("removed topic still present: %v", snap.DeniedTopics)
	}
	if !contains(snap.BlockedWords, "exfiltrate") {
		t.Fatalf("added word missing: %v", snap.BlockedWords)
	}
	if len(snap.PIIEntities) != 1 || snap.PIIEntities[0] != EntityCreditCard {
		t.Fatalf("expected only CREDIT_CARD, got %v", snap.PIIEntities)
	}
	if snap.PIIAction != PIIBlock {
		t.Fatalf("expected overridden pii action, got %s", snap.PIIAction)
	}

	// Base config is untouched for other roles.
	base := Resolve(cfg, types.RoleExternal)
	if !contains(base.DeniedTopics, "model jailbreaking") {
		t.Fatalf("base topics mutated: %v", base.DeniedTopics)
	}
	if base.PIIAction != PIIAnonymize {
		t.Fatalf("base pii action mutated: %s", base.PIIAction)
	}
}

func TestDefaultConfigIsValidAndStricterForExternal(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	external := Resolve(cfg, types.RoleExternal)
	internal := Resolve(cfg, types.RoleInternal)
	if len(external.DeniedTopics) <= len(internal.DeniedTopics) {
		t.Fatalf("external should deny more topics: external=%d internal=%d",
			len(external.DeniedTopics), len(internal.DeniedTopics))
	}
	if !contains(external.DeniedTopics, "credit risk strategy") {
		t.Fatalf("external missing restricted topic: %v", external.DeniedTopics)
	}
	if contains(internal.DeniedTopics, "credit risk strategy") {
		t.Fatalf("internal should allow credit risk strategy: %v", internal.DeniedTopics)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero version", func(c *Config) { c.Version = 0 }},
		{"empty blocked words", func(c *Config) { c.BlockedWords = nil }},
		{"empty denied topics", func(c *Config) { c.DeniedTopics = nil }},
		{"blank word", func(c *Config) { c.BlockedWords = []string{""} }},
		{"bad pii action", func(c *Config) { c.PIIAction = "SCRUB" }},
		{"threshold out of range", func(c *Config) { c.CategoryThresholds = map[string]float64{"x": 1.5} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(1)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
