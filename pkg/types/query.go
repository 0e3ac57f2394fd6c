package types

// Role classifies the caller of a query. It selects both the applicable
// guardrail policy and the set of routable paths.
type Role string

const (
	RoleExternal Role = "external"
	RoleInternal Role = "internal"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleExternal || r == RoleInternal
}

// Query is an inbound user question. Immutable once created; redacted
// variants of the text travel separately in verdicts.
type Query struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Role      Role   `json:"role"`
	SessionID string `json:"session_id"`
}

// Status is the terminal outcome of handling a query.
type Status string

const (
	StatusAnswered Status = "ANSWERED"
	StatusBlocked  Status = "BLOCKED"
	StatusDegraded Status = "DEGRADED"
)

// Response is what the orchestrator returns to the caller.
type Response struct {
	Status   Status        `json:"status"`
	Text     string        `json:"text"`
	Path     Path          `json:"path,omitempty"`
	Evidence []ScoredChunk `json:"evidence_used,omitempty"`
	AuditRef string        `json:"audit_ref"`
}
