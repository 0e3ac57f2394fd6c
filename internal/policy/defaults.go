package policy

import "github.com/cardwise/warden/pkg/types"

// DefaultConfig is the built-in version-1 policy used when no policy file is
// configured. External callers get a stricter denied-topic list layered over
// the shared base; internal callers keep only the abuse and exfiltration
// topics.
func DefaultConfig() Config {
	return Config{
		Version: 1,
		BlockedWords: []string{
			"hack", "bypass", "exploit", "reverse engineer", "fraud",
			"unauthorized", "adversarial", "sql injection",
			"malicious", "data exfiltration", "jailbreak",
		},
		DeniedTopics: []string{
			"fraud detection bypass", "model jailbreaking",
			"unauthorized model access", "data exfiltration",
			"pii data leakage",
		},
		PIIEntities: []EntityKind{EntityCreditCard, EntitySSN, EntityEmail, EntityPhone},
		PIIAction:   PIIAnonymize,
		VisibleSuffix: map[EntityKind]int{
			EntityCreditCard: 4,
			EntitySSN:        4,
			EntityPhone:      4,
			EntityEmail:      0,
		},
		CategoryThresholds: map[string]float64{
			"hate":     0.5,
			"violence": 0.75,
			"sexual":   0.75,
		},
		RoleOverrides: map[types.Role]Override{
			types.RoleExternal: {
				AddDeniedTopics: []string{
					"credit risk strategy", "internal approval process",
					"internal collections framework", "internal underwriting",
					"credit limit algorithm", "chargeback trick",
					"unsolicited card exploit",
				},
			},
		},
	}
}
