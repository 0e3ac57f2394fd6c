// Package guardrail enforces role-scoped content policy on inbound queries
// and outbound generations: blocked words, denied topics, and PII handling.
package guardrail

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/policy"
	"github.com/cardwise/warden/pkg/types"
)

// Engine evaluates text against the active policy for a role. Evaluation is
// stateless and idempotent: the same (text, role, policy version) always
// yields an identical verdict.
type Engine struct {
	policies *policy.Store
	sink     audit.Store
}

func New(policies *policy.Store, sink audit.Store) *Engine {
	return &Engine{policies: policies, sink: sink}
}

// Request carries one evaluation. QueryID and SessionID only feed the audit
// trail.
type Request struct {
	Text      string
	Role      types.Role
	Direction types.Direction
	QueryID   string
	SessionID string
}

// Evaluate classifies and optionally redacts text. It never fails on
// well-formed input; the worst case is a BLOCK verdict. Exactly one audit
// event is appended per call, ALLOW included.
func (e *Engine) Evaluate(ctx context.Context, req Request) types.GuardrailVerdict {
	snap := e.policies.Active(req.Role)
	verdict := evaluate(req.Text, snap)
	e.record(ctx, req, verdict)
	return verdict
}

func evaluate(text string, snap policy.Snapshot) types.GuardrailVerdict {
	verdict := types.GuardrailVerdict{PolicyVersion: snap.Version}
	normalized := normalize(text)

	// Blocked words and denied topics both force BLOCK; collect every hit so
	// the audit trail names all offending rules, not just the first.
	for _, word := range snap.BlockedWords {
		if strings.Contains(normalized, word) {
			verdict.MatchedRules = append(verdict.MatchedRules, types.MatchedRule{Kind: "blocked_word", Rule: word})
		}
	}
	for _, topic := range snap.DeniedTopics {
		if strings.Contains(normalized, topic) {
			verdict.MatchedRules = append(verdict.MatchedRules, types.MatchedRule{Kind: "denied_topic", Rule: topic})
		}
	}
	if len(verdict.MatchedRules) > 0 {
		verdict.Action = types.ActionBlock
		return verdict
	}

	// PII detection runs on the original text so redaction can preserve
	// casing and spacing.
	spans := resolveOverlaps(detect(text, snap.PIIEntities))
	if len(spans) > 0 {
		kinds := map[policy.EntityKind]struct{}{}
		for _, sp := range spans {
			kinds[sp.kind] = struct{}{}
		}
		sortedKinds := make([]string, 0, len(kinds))
		for k := range kinds {
			sortedKinds = append(sortedKinds, string(k))
		}
		sort.Strings(sortedKinds)
		for _, k := range sortedKinds {
			verdict.MatchedRules = append(verdict.MatchedRules, types.MatchedRule{Kind: "pii", Rule: k})
		}

		if snap.PIIAction == policy.PIIBlock {
			verdict.Action = types.ActionBlock
			return verdict
		}
		verdict.Action = types.ActionRedact
		verdict.RedactedText = mask(text, spans, snap.VisibleSuffix)
		return verdict
	}

	verdict.Action = types.ActionAllow
	verdict.RedactedText = text
	return verdict
}

// record appends the evaluation to the audit trail. A detached context is
// used so a caller that abandoned the request cannot lose the verdict.
func (e *Engine) record(ctx context.Context, req Request, verdict types.GuardrailVerdict) {
	if e.sink == nil {
		return
	}
	stage := types.StageInbound
	if req.Direction == types.DirectionOutbound {
		stage = types.StageOutbound
	}
	rules := make([]string, 0, len(verdict.MatchedRules))
	for _, r := range verdict.MatchedRules {
		rules = append(rules, r.String())
	}
	event := types.AuditEvent{
		Timestamp:     time.Now().UTC(),
		QueryID:       req.QueryID,
		SessionID:     req.SessionID,
		Stage:         stage,
		Decision:      string(verdict.Action),
		Rules:         rules,
		PolicyVersion: verdict.PolicyVersion,
	}
	if err := e.sink.Append(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("guardrail: audit append for query %s: %v", req.QueryID, err)
	}
}
