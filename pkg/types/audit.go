package types

import "time"

// Stage marks where in the request lifecycle an audit event was emitted.
type Stage string

const (
	StageInbound      Stage = "INBOUND"
	StageRoute        Stage = "ROUTE"
	StageRetrieval    Stage = "RETRIEVAL"
	StageOutbound     Stage = "OUTBOUND"
	StagePolicyChange Stage = "POLICY_CHANGE"
)

// AuditEvent is one append-only trail entry. Events are never edited or
// deleted; ordering is per-session monotonic by timestamp. Rules carries
// matched rule references and decision detail, never raw detected PII.
type AuditEvent struct {
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	QueryID       string    `json:"query_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	Stage         Stage     `json:"stage"`
	Decision      string    `json:"decision"`
	Rules         []string  `json:"rules,omitempty"`
	PolicyVersion int       `json:"policy_version"`
}
