package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardwise/warden/pkg/types"
)

// InMemoryStore keeps the trail in process memory. Suitable for tests and
// single-node dev runs; production deployments use the sqlstore variant.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []types.AuditEvent
	policies map[int]PolicyRecord

	// lastPerSession enforces per-session monotonic timestamps even when the
	// wall clock stalls between appends.
	lastPerSession map[string]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		policies:       make(map[int]PolicyRecord),
		lastPerSession: make(map[string]time.Time),
	}
}

func (s *InMemoryStore) Append(_ context.Context, event types.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if last, ok := s.lastPerSession[event.SessionID]; ok && !event.Timestamp.After(last) {
		event.Timestamp = last.Add(time.Nanosecond)
	}
	s.lastPerSession[event.SessionID] = event.Timestamp

	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ArchivePolicy(_ context.Context, record PolicyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.policies[record.Version] = record
	return nil
}

func (s *InMemoryStore) ListByQuery(_ context.Context, queryID string) ([]types.AuditEvent, error) {
	return s.filter(func(e types.AuditEvent) bool { return e.QueryID == queryID })
}

func (s *InMemoryStore) ListBySession(_ context.Context, sessionID string) ([]types.AuditEvent, error) {
	return s.filter(func(e types.AuditEvent) bool { return e.SessionID == sessionID })
}

func (s *InMemoryStore) ListByTimeRange(_ context.Context, from, to time.Time) ([]types.AuditEvent, error) {
	return s.filter(func(e types.AuditEvent) bool {
		return !e.Timestamp.Before(from) && !e.Timestamp.After(to)
	})
}

func (s *InMemoryStore) ListByPolicyVersion(_ context.Context, version int) ([]types.AuditEvent, error) {
	return s.filter(func(e types.AuditEvent) bool { return e.PolicyVersion == version })
}

func (s *InMemoryStore) PolicyVersions(_ context.Context) ([]PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PolicyRecord, 0, len(s.policies))
	for _, rec := range s.policies {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *InMemoryStore) GetPolicy(_ context.Context, version int) (PolicyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.policies[version]
	return rec, ok
}

func (s *InMemoryStore) filter(keep func(types.AuditEvent) bool) ([]types.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []types.AuditEvent{}
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
