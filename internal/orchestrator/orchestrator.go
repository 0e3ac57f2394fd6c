// Package orchestrator runs the full query pipeline: validate, guard inbound,
// route, retrieve, generate, guard outbound, audit.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/internal/guardrail"
	"github.com/cardwise/warden/internal/knowledge"
	"github.com/cardwise/warden/internal/retrieval"
	"github.com/cardwise/warden/internal/rewards"
	"github.com/cardwise/warden/internal/router"
	"github.com/cardwise/warden/pkg/types"
)

// ErrMalformedInput rejects queries that fail basic shape checks before any
// policy evaluation or audit activity happens.
var ErrMalformedInput = errors.New("malformed input")

// Config carries the pipeline tunables and the fixed response messages. The
// messages are configuration so deployments can brand them without a rebuild.
type Config struct {
	MaxQueryChars int
	MaxRetries    int
	RetryBackoff  time.Duration

	BlockedInputMessage  string
	BlockedOutputMessage string
	FallbackMessage      string
	DegradedMessage      string
}

func (c Config) withDefaults() Config {
	if c.MaxQueryChars <= 0 {
		c.MaxQueryChars = 4000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.BlockedInputMessage == "" {
		c.BlockedInputMessage = "This request cannot be assisted with as it goes against our company policies. Please reach out to our support team for further help."
	}
	if c.BlockedOutputMessage == "" {
		c.BlockedOutputMessage = "The generated response was withheld because it conflicts with our content policies. Please contact our support team for further help."
	}
	if c.FallbackMessage == "" {
		c.FallbackMessage = "I could not confidently match your question to rewards, policy, or FAQ topics. Could you rephrase it, or tell me whether it concerns rewards categories, card policies, or account servicing?"
	}
	if c.DegradedMessage == "" {
		c.DegradedMessage = "Our knowledge sources are temporarily unavailable, so a full answer cannot be produced right now. Please try again shortly."
	}
	return c
}

// Orchestrator wires the stages together. All stage failures degrade the
// response; the only errors returned to the caller are input-shape errors.
type Orchestrator struct {
	router    *router.Router
	guard     *guardrail.Engine
	merger    *retrieval.Merger
	generator backend.Generator
	sink      audit.Store
	cfg       Config
}

func New(rt *router.Router, guard *guardrail.Engine, merger *retrieval.Merger, generator backend.Generator, sink audit.Store, cfg Config) *Orchestrator {
	return &Orchestrator{
		router:    rt,
		guard:     guard,
		merger:    merger,
		generator: generator,
		sink:      sink,
		cfg:       cfg.withDefaults(),
	}
}

// Handle runs one query through the pipeline. Blank or oversized text and
// unknown roles return ErrMalformedInput without touching the audit trail.
// Every other outcome produces a terminal audit event whose ID is returned as
// the response AuditRef.
func (o *Orchestrator) Handle(ctx context.Context, q types.Query) (types.Response, error) {
	trimmed := strings.TrimSpace(q.Text)
	if trimmed == "" {
		return types.Response{}, fmt.Errorf("%w: empty query text", ErrMalformedInput)
	}
	if len(q.Text) > o.cfg.MaxQueryChars {
		return types.Response{}, fmt.Errorf("%w: query exceeds %d characters", ErrMalformedInput, o.cfg.MaxQueryChars)
	}
	if !q.Role.Valid() {
		return types.Response{}, fmt.Errorf("%w: unknown role %q", ErrMalformedInput, q.Role)
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.SessionID == "" {
		q.SessionID = uuid.NewString()
	}

	decision, verdict, err := o.router.Route(ctx, q)
	if err != nil {
		return types.Response{}, err
	}
	if verdict.Blocked() {
		return o.finish(ctx, q, decision.TargetPath, types.Response{
			Status: types.StatusBlocked,
			Text:   o.cfg.BlockedInputMessage,
			Path:   decision.TargetPath,
		}), nil
	}

	if decision.TargetPath == types.PathFallback {
		return o.deliver(ctx, q, decision.TargetPath, types.StatusAnswered, o.cfg.FallbackMessage, nil), nil
	}

	// Evidence paths. Retrieval runs on the redacted text so masked PII never
	// reaches an index or a model.
	var evidence []types.ScoredChunk
	if decision.TargetPath.NeedsEvidence() {
		merged, rerr := o.merger.Retrieve(ctx, q, verdict.RedactedText, decision.TargetPath)
		if rerr != nil {
			return o.deliver(ctx, q, decision.TargetPath, types.StatusDegraded, o.cfg.DegradedMessage, nil), nil
		}
		evidence = merged.Chunks
	}
	if decision.TargetPath == types.PathRewards {
		evidence = append(evidence, ruleEngineChunk(verdict.RedactedText))
	}

	text, genErr := o.generate(ctx, q, evidence)
	status := types.StatusAnswered
	if genErr != nil {
		// Generation exhausted its retries: fall back to a retrieval-only
		// summary instead of failing the query.
		log.Printf("orchestrator: generation for query %s: %v", q.ID, genErr)
		status = types.StatusDegraded
		text = evidenceSummary(evidence, o.cfg.DegradedMessage)
	}

	return o.deliver(ctx, q, decision.TargetPath, status, text, evidence), nil
}

// generate calls the generator with bounded retries. Only transient errors
// are retried; anything else fails immediately.
func (o *Orchestrator) generate(ctx context.Context, q types.Query, evidence []types.ScoredChunk) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(o.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		text, err := o.generator.Generate(ctx, q, evidence)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !errors.Is(err, backend.ErrGenerationTimeout) && !errors.Is(err, backend.ErrGenerationRateLimited) {
			return "", err
		}
	}
	return "", lastErr
}

// deliver guards the outgoing text, then finalizes the response. A BLOCK on
// the way out replaces the text entirely; a REDACT keeps the masked variant.
func (o *Orchestrator) deliver(ctx context.Context, q types.Query, path types.Path, status types.Status, text string, evidence []types.ScoredChunk) types.Response {
	out := o.guard.Evaluate(ctx, guardrail.Request{
		Text:      text,
		Role:      q.Role,
		Direction: types.DirectionOutbound,
		QueryID:   q.ID,
		SessionID: q.SessionID,
	})
	switch out.Action {
	case types.ActionBlock:
		status = types.StatusBlocked
		text = o.cfg.BlockedOutputMessage
		evidence = nil
	case types.ActionRedact:
		text = out.RedactedText
	}

	return o.finish(ctx, q, path, types.Response{
		Status:   status,
		Text:     text,
		Path:     path,
		Evidence: evidence,
	})
}

// finish appends the terminal audit event and stamps its ID on the response.
// The append uses a detached context so an abandoned request still leaves a
// complete trail.
func (o *Orchestrator) finish(ctx context.Context, q types.Query, path types.Path, resp types.Response) types.Response {
	eventID := uuid.NewString()
	event := types.AuditEvent{
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
		QueryID:   q.ID,
		SessionID: q.SessionID,
		Stage:     types.StageOutbound,
		Decision:  string(resp.Status),
		Rules: []string{
			fmt.Sprintf("path:%s", path),
			fmt.Sprintf("evidence:%d", len(resp.Evidence)),
		},
	}
	if o.sink != nil {
		if err := o.sink.Append(context.WithoutCancel(ctx), event); err != nil {
			log.Printf("orchestrator: terminal audit append for query %s: %v", q.ID, err)
		}
	}
	resp.AuditRef = eventID
	return resp
}

// ruleEngineChunk wraps the rewards rule engine output as synthetic evidence
// so the generator sees it alongside retrieved chunks.
func ruleEngineChunk(text string) types.ScoredChunk {
	rendered := rewards.Recommend(text).Render()
	return types.ScoredChunk{
		Chunk: types.KnowledgeChunk{
			SourceID:    "rewards_rule_engine",
			SourceKind:  types.SourceRuleEngine,
			Text:        rendered,
			ContentHash: knowledge.HashContent(rendered),
		},
		Score: 1.0,
	}
}

// evidenceSummary renders retrieved excerpts directly when generation is
// unavailable.
func evidenceSummary(evidence []types.ScoredChunk, fallback string) string {
	if len(evidence) == 0 {
		return fallback
	}
	var b strings.Builder
	b.WriteString("A full answer could not be generated right now. The most relevant excerpts from our knowledge sources:\n")
	for i, sc := range evidence {
		excerpt := sc.Chunk.Text
		if len(excerpt) > 300 {
			excerpt = excerpt[:300] + "..."
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, sc.Chunk.SourceID, excerpt)
	}
	return b.String()
}
