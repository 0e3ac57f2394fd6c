package types

// GuardrailAction is the outcome of a single guardrail evaluation.
type GuardrailAction string

const (
	ActionAllow  GuardrailAction = "ALLOW"
	ActionBlock  GuardrailAction = "BLOCK"
	ActionRedact GuardrailAction = "REDACT"
)

// Direction distinguishes evaluation of user input from evaluation of
// generated output.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// MatchedRule references the policy rule that fired. For PII matches Rule
// names the entity kind, never the detected value.
type MatchedRule struct {
	Kind string `json:"kind"`
	Rule string `json:"rule"`
}

func (m MatchedRule) String() string {
	return m.Kind + ":" + m.Rule
}

// GuardrailVerdict is produced fresh per (text, role, policy version) triple
// and never mutated afterwards. RedactedText carries the original text on
// ALLOW, the masked text on REDACT, and is empty on BLOCK.
type GuardrailVerdict struct {
	Action        GuardrailAction `json:"action"`
	MatchedRules  []MatchedRule   `json:"matched_rules,omitempty"`
	RedactedText  string          `json:"redacted_text,omitempty"`
	PolicyVersion int             `json:"policy_version"`
}

// Blocked reports whether the verdict stops processing.
func (v GuardrailVerdict) Blocked() bool {
	return v.Action == ActionBlock
}
