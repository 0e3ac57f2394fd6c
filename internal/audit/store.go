package audit

import (
	"context"
	"time"

	"github.com/cardwise/warden/pkg/types"
)

// PolicyRecord archives one published policy version for compliance replay.
type PolicyRecord struct {
	Version    int
	CreatedAt  time.Time
	ConfigYAML []byte
}

// Store is the append-only audit sink. Appends from concurrent requests must
// not serialize unrelated requests against each other, and an append must be
// durable before the corresponding response is returned.
type Store interface {
	Append(ctx context.Context, event types.AuditEvent) error
	ArchivePolicy(ctx context.Context, record PolicyRecord) error

	ListByQuery(ctx context.Context, queryID string) ([]types.AuditEvent, error)
	ListBySession(ctx context.Context, sessionID string) ([]types.AuditEvent, error)
	ListByTimeRange(ctx context.Context, from, to time.Time) ([]types.AuditEvent, error)
	ListByPolicyVersion(ctx context.Context, version int) ([]types.AuditEvent, error)

	PolicyVersions(ctx context.Context) ([]PolicyRecord, error)
	GetPolicy(ctx context.Context, version int) (PolicyRecord, bool)
}
