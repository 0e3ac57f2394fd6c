package policy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/pkg/types"
)

// ErrInvalidPolicy rejects a malformed or non-monotonic publish. Operator
// error, surfaced synchronously.
var ErrInvalidPolicy = errors.New("invalid policy")

// resolved is one immutable committed version with its per-role snapshots
// precomputed. Readers bind to a resolved at the start of an evaluation and
// complete against it even if a publish lands mid-flight.
type resolved struct {
	cfg    Config
	byRole map[types.Role]Snapshot
}

// Store owns the PolicyConfig lifecycle. Reads are lock-free via an atomic
// pointer swap; publishes serialize on a mutex.
type Store struct {
	mu      sync.Mutex
	active  atomic.Pointer[resolved]
	history map[int]Config
	sink    audit.Store
}

// NewStore commits the initial config as the first version. The sink may be
// nil (no auditing), which is only acceptable in tests.
func NewStore(initial Config, sink audit.Store) (*Store, error) {
	s := &Store{history: make(map[int]Config), sink: sink}
	if _, err := s.Publish(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Active returns the snapshot of the most recent committed version merged
// with the role's overrides. Never fails.
func (s *Store) Active(role types.Role) Snapshot {
	res := s.active.Load()
	if snap, ok := res.byRole[role]; ok {
		return snap
	}
	// Unknown role: resolve against the base config on the fly.
	return Resolve(res.cfg, role)
}

// ActiveVersion returns the committed version number.
func (s *Store) ActiveVersion() int {
	return s.active.Load().cfg.Version
}

// Version returns an archived config for audit replay.
func (s *Store) Version(n int) (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.history[n]
	return cfg, ok
}

// Publish validates and atomically commits a new version. The version number
// must be strictly greater than the current one. Readers never observe a
// partially-updated policy.
func (s *Store) Publish(cfg Config) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	before := 0
	if cur := s.active.Load(); cur != nil {
		before = cur.cfg.Version
		if cfg.Version <= before {
			return 0, fmt.Errorf("%w: version %d is not greater than current %d", ErrInvalidPolicy, cfg.Version, before)
		}
	}

	res := &resolved{cfg: cfg, byRole: map[types.Role]Snapshot{
		types.RoleExternal: Resolve(cfg, types.RoleExternal),
		types.RoleInternal: Resolve(cfg, types.RoleInternal),
	}}
	for role := range cfg.RoleOverrides {
		res.byRole[role] = Resolve(cfg, role)
	}

	s.active.Store(res)
	s.history[cfg.Version] = cfg
	s.record(before, cfg)
	return cfg.Version, nil
}

func (s *Store) record(before int, cfg Config) {
	if s.sink == nil {
		return
	}
	ctx := context.Background()
	raw, err := yaml.Marshal(cfg)
	if err == nil {
		if err := s.sink.ArchivePolicy(ctx, audit.PolicyRecord{Version: cfg.Version, ConfigYAML: raw}); err != nil {
			log.Printf("policy: archive version %d: %v", cfg.Version, err)
		}
	}
	event := types.AuditEvent{
		Timestamp:     time.Now().UTC(),
		Stage:         types.StagePolicyChange,
		Decision:      "policy-change",
		Rules:         []string{fmt.Sprintf("before:%d", before), fmt.Sprintf("after:%d", cfg.Version)},
		PolicyVersion: cfg.Version,
	}
	if err := s.sink.Append(ctx, event); err != nil {
		log.Printf("policy: audit publish of version %d: %v", cfg.Version, err)
	}
}

// Validate checks structural invariants of one config.
func (c Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("%w: version must be >= 1", ErrInvalidPolicy)
	}
	if len(c.BlockedWords) == 0 {
		return fmt.Errorf("%w: blocked_words must not be empty", ErrInvalidPolicy)
	}
	if len(c.DeniedTopics) == 0 {
		return fmt.Errorf("%w: denied_topics must not be empty", ErrInvalidPolicy)
	}
	for _, w := range c.BlockedWords {
		if w == "" {
			return fmt.Errorf("%w: blocked_words contains an empty entry", ErrInvalidPolicy)
		}
	}
	for _, t := range c.DeniedTopics {
		if t == "" {
			return fmt.Errorf("%w: denied_topics contains an empty entry", ErrInvalidPolicy)
		}
	}
	if len(c.PIIEntities) > 0 {
		switch c.PIIAction {
		case PIIAnonymize, PIIBlock:
		default:
			return fmt.Errorf("%w: pii_action must be ANONYMIZE or BLOCK", ErrInvalidPolicy)
		}
	}
	for cat, threshold := range c.CategoryThresholds {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: threshold for %q outside [0,1]", ErrInvalidPolicy, cat)
		}
	}
	return nil
}
