// Package router classifies an inbound query onto a handling path after the
// inbound guardrail has passed it.
package router

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/internal/guardrail"
	"github.com/cardwise/warden/internal/vecmath"
	"github.com/cardwise/warden/pkg/types"
)

// scoreOrder fixes the iteration order over candidate paths so scoring is
// deterministic. FALLBACK is the floor, never scored.
var scoreOrder = []types.Path{types.PathRewards, types.PathPolicyFAQ, types.PathInternalOps}

// Config tunes classification. Keyword lists are the lexical signal; the
// exemplars feed embedding similarity when an embedder is wired.
type Config struct {
	Epsilon       float64
	MinConfidence float64
	PathKeywords  map[types.Path][]string
	PathExemplars map[types.Path][]string
	// InternalOnly paths are hard-filtered for external roles before any
	// scoring happens. Role eligibility is a correctness invariant, not a
	// tie-break heuristic.
	InternalOnly map[types.Path]bool
}

func (c Config) withDefaults() Config {
	if c.Epsilon <= 0 {
		c.Epsilon = 0.05
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.35
	}
	if c.PathKeywords == nil {
		c.PathKeywords = DefaultPathKeywords()
	}
	if c.PathExemplars == nil {
		c.PathExemplars = DefaultPathExemplars()
	}
	if c.InternalOnly == nil {
		c.InternalOnly = map[types.Path]bool{types.PathInternalOps: true}
	}
	return c
}

// Router runs the inbound guardrail, then scores the surviving (possibly
// redacted) text against each eligible path.
type Router struct {
	guard    *guardrail.Engine
	embedder backend.Embedder
	sink     audit.Store
	cfg      Config

	exemplarOnce sync.Once
	exemplarVecs map[types.Path][]float32
}

// New builds a router. The embedder may be nil, in which case classification
// is purely lexical.
func New(guard *guardrail.Engine, embedder backend.Embedder, sink audit.Store, cfg Config) *Router {
	return &Router{guard: guard, embedder: embedder, sink: sink, cfg: cfg.withDefaults()}
}

// Route evaluates the inbound guardrail and classifies the query. On a BLOCK
// verdict routing short-circuits: the decision is FALLBACK with zero
// confidence and the caller must stop before retrieval or generation.
func (r *Router) Route(ctx context.Context, q types.Query) (types.RoutingDecision, types.GuardrailVerdict, error) {
	verdict := r.guard.Evaluate(ctx, guardrail.Request{
		Text:      q.Text,
		Role:      q.Role,
		Direction: types.DirectionInbound,
		QueryID:   q.ID,
		SessionID: q.SessionID,
	})
	if verdict.Blocked() {
		decision := types.RoutingDecision{TargetPath: types.PathFallback, Confidence: 0}
		r.record(ctx, q, decision, "blocked_input")
		return decision, verdict, nil
	}

	decision := r.classify(ctx, verdict.RedactedText, q.Role)
	r.record(ctx, q, decision, "routed")
	return decision, verdict, nil
}

func (r *Router) classify(ctx context.Context, text string, role types.Role) types.RoutingDecision {
	lowered := strings.ToLower(text)

	var queryVec []float32
	if r.embedder != nil {
		vec, err := r.embedder.Embed(ctx, text)
		if err == nil {
			queryVec = vec
			r.ensureExemplars(ctx)
		}
	}

	type scored struct {
		path  types.Path
		score float64
	}
	var candidates []scored
	for _, path := range scoreOrder {
		if r.cfg.InternalOnly[path] && role != types.RoleInternal {
			continue
		}
		candidates = append(candidates, scored{path: path, score: r.score(lowered, queryVec, path)})
	}

	best, second := scored{path: types.PathFallback}, scored{path: types.PathFallback}
	for _, c := range candidates {
		switch {
		case c.score > best.score:
			second = best
			best = c
		case c.score > second.score:
			second = c
		}
	}

	// Near-tie: prefer the path with the narrower role scope.
	if best.score-second.score < r.cfg.Epsilon && second.score > 0 {
		if r.cfg.InternalOnly[second.path] && !r.cfg.InternalOnly[best.path] {
			best = second
		}
	}

	if best.score < r.cfg.MinConfidence {
		return types.RoutingDecision{TargetPath: types.PathFallback, Confidence: best.score}
	}
	return types.RoutingDecision{TargetPath: best.path, Confidence: best.score}
}

// score blends keyword presence with exemplar similarity. Lexical hits
// dominate so behavior stays predictable when the embedder is a simple local
// one.
func (r *Router) score(lowered string, queryVec []float32, path types.Path) float64 {
	hits := 0
	for _, kw := range r.cfg.PathKeywords[path] {
		if strings.Contains(lowered, kw) {
			hits++
		}
	}
	lexical := float64(hits) * 0.35
	if lexical > 1 {
		lexical = 1
	}

	if queryVec == nil {
		return lexical
	}
	exemplar, ok := r.exemplarVecs[path]
	if !ok {
		return lexical
	}
	semantic := (vecmath.Cosine(queryVec, exemplar) + 1) / 2
	return 0.7*lexical + 0.3*semantic
}

// ensureExemplars lazily embeds the path exemplars into one mean vector per
// path.
func (r *Router) ensureExemplars(ctx context.Context) {
	r.exemplarOnce.Do(func() {
		vecs := map[types.Path][]float32{}
		for path, examples := range r.cfg.PathExemplars {
			var mean []float32
			n := 0
			for _, ex := range examples {
				vec, err := r.embedder.Embed(ctx, ex)
				if err != nil {
					continue
				}
				if mean == nil {
					mean = make([]float32, len(vec))
				}
				for i := range vec {
					mean[i] += vec[i]
				}
				n++
			}
			if n == 0 {
				continue
			}
			for i := range mean {
				mean[i] /= float32(n)
			}
			vecs[path] = vecmath.Normalize(mean)
		}
		r.exemplarVecs = vecs
	})
}

func (r *Router) record(ctx context.Context, q types.Query, decision types.RoutingDecision, label string) {
	if r.sink == nil {
		return
	}
	event := types.AuditEvent{
		Timestamp: time.Now().UTC(),
		QueryID:   q.ID,
		SessionID: q.SessionID,
		Stage:     types.StageRoute,
		Decision:  label,
		Rules: []string{
			fmt.Sprintf("path:%s", decision.TargetPath),
			fmt.Sprintf("confidence:%.2f", decision.Confidence),
		},
	}
	if err := r.sink.Append(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("router: audit append for query %s: %v", q.ID, err)
	}
}
