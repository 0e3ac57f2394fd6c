package types

// Path is a specialized handling path a query can route to.
type Path string

const (
	PathRewards     Path = "REWARDS"
	PathPolicyFAQ   Path = "POLICY_FAQ"
	PathInternalOps Path = "INTERNAL_OPS"
	PathFallback    Path = "FALLBACK"
)

// NeedsEvidence reports whether the path requires retrieval before
// generation.
func (p Path) NeedsEvidence() bool {
	switch p {
	case PathRewards, PathPolicyFAQ, PathInternalOps:
		return true
	default:
		return false
	}
}

// RoutingDecision is derived from a query and consumed once by the
// orchestrator.
type RoutingDecision struct {
	TargetPath Path    `json:"target_path"`
	Confidence float64 `json:"confidence"`
}
