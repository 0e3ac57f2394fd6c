package policy

import "github.com/cardwise/warden/pkg/types"

// EntityKind names a detectable PII entity class.
type EntityKind string

const (
	EntityCreditCard EntityKind = "CREDIT_CARD"
	EntitySSN        EntityKind = "SSN"
	EntityEmail      EntityKind = "EMAIL"
	EntityPhone      EntityKind = "PHONE"
)

// PIIAction says what to do when a PII entity is detected.
type PIIAction string

const (
	PIIAnonymize PIIAction = "ANONYMIZE"
	PIIBlock     PIIAction = "BLOCK"
)

// Config is one committed guardrail policy version. Versions are replaced
// atomically and never mutated in place; old versions stay archived for
// audit replay.
type Config struct {
	Version            int                     `yaml:"version" json:"version"`
	DeniedTopics       []string                `yaml:"denied_topics" json:"denied_topics"`
	BlockedWords       []string                `yaml:"blocked_words" json:"blocked_words"`
	PIIEntities        []EntityKind            `yaml:"pii_entities" json:"pii_entities"`
	PIIAction          PIIAction               `yaml:"pii_action" json:"pii_action"`
	VisibleSuffix      map[EntityKind]int      `yaml:"visible_suffix" json:"visible_suffix"`
	CategoryThresholds map[string]float64      `yaml:"category_thresholds" json:"category_thresholds"`
	RoleOverrides      map[types.Role]Override `yaml:"role_overrides" json:"role_overrides"`
}

// Override is a per-role delta merged over the base config. Role differences
// live here as data so adding a role needs configuration only.
type Override struct {
	AddDeniedTopics    []string           `yaml:"add_denied_topics" json:"add_denied_topics,omitempty"`
	RemoveDeniedTopics []string           `yaml:"remove_denied_topics" json:"remove_denied_topics,omitempty"`
	AddBlockedWords    []string           `yaml:"add_blocked_words" json:"add_blocked_words,omitempty"`
	RemoveBlockedWords []string           `yaml:"remove_blocked_words" json:"remove_blocked_words,omitempty"`
	AddPIIEntities     []EntityKind       `yaml:"add_pii_entities" json:"add_pii_entities,omitempty"`
	RemovePIIEntities  []EntityKind       `yaml:"remove_pii_entities" json:"remove_pii_entities,omitempty"`
	PIIAction          *PIIAction         `yaml:"pii_action" json:"pii_action,omitempty"`
	CategoryThresholds map[string]float64 `yaml:"category_thresholds" json:"category_thresholds,omitempty"`
}

// Snapshot is the role-resolved, matching-ready view of one policy version.
// List fields are sorted and deduplicated so evaluation order is
// deterministic.
type Snapshot struct {
	Version            int
	DeniedTopics       []string
	BlockedWords       []string
	PIIEntities        []EntityKind
	PIIAction          PIIAction
	VisibleSuffix      map[EntityKind]int
	CategoryThresholds map[string]float64
}
