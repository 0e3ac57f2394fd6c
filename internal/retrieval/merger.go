// Package retrieval fans a query out to the configured knowledge indices and
// merges the results into one deduplicated, ranked evidence set.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cardwise/warden/internal/audit"
	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/internal/vecmath"
	"github.com/cardwise/warden/pkg/types"
)

// ErrRetrievalUnavailable means no source produced evidence. The orchestrator
// maps it to a safe fallback response, never to a raw error for the caller.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Source is one knowledge index the merger consults.
type Source struct {
	Kind  types.SourceKind
	Index backend.VectorIndex
}

// Config tunes the merge. Source weights are configuration so operators can
// bias authority toward official policy text over FAQ text.
type Config struct {
	TopK             int
	Budget           int
	NearDupThreshold float64
	SourceTimeout    time.Duration
	Weights          map[types.SourceKind]float64
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.Budget <= 0 {
		c.Budget = 6
	}
	if c.NearDupThreshold <= 0 {
		c.NearDupThreshold = 0.95
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = 2 * time.Second
	}
	if c.Weights == nil {
		c.Weights = map[types.SourceKind]float64{
			types.SourcePolicyDoc: 1.0,
			types.SourceFAQ:       0.8,
		}
	}
	return c
}

// Merger issues independent top-K queries against each source in parallel
// and merges the results deterministically.
type Merger struct {
	embedder backend.Embedder
	sources  []Source
	sink     audit.Store
	cfg      Config
}

func NewMerger(embedder backend.Embedder, sources []Source, sink audit.Store, cfg Config) *Merger {
	return &Merger{embedder: embedder, sources: sources, sink: sink, cfg: cfg.withDefaults()}
}

type sourceResult struct {
	kind   types.SourceKind
	chunks []types.ScoredChunk
	err    error
}

// Retrieve embeds the (possibly redacted) query text once and fans out to
// every source. A failed or timed-out source degrades the result to partial;
// only a total failure returns ErrRetrievalUnavailable.
func (m *Merger) Retrieve(ctx context.Context, q types.Query, text string, path types.Path) (types.MergedResult, error) {
	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.record(ctx, q, path, "unavailable", 0, len(m.sources), 0)
		return types.MergedResult{}, fmt.Errorf("%w: embed: %v", ErrRetrievalUnavailable, err)
	}

	results := make([]sourceResult, len(m.sources))
	var wg sync.WaitGroup
	for i, src := range m.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			srcCtx, cancel := context.WithTimeout(ctx, m.cfg.SourceTimeout)
			defer cancel()
			chunks, err := src.Index.TopK(srcCtx, vector, m.cfg.TopK)
			results[i] = sourceResult{kind: src.Kind, chunks: chunks, err: err}
		}(i, src)
	}
	wg.Wait()

	failed := 0
	var collected []sourceResult
	for _, res := range results {
		if res.err != nil {
			failed++
			log.Printf("retrieval: source %s for query %s: %v", res.kind, q.ID, res.err)
			continue
		}
		collected = append(collected, res)
	}

	if len(collected) == 0 {
		m.record(ctx, q, path, "unavailable", 0, failed, 0)
		return types.MergedResult{}, fmt.Errorf("%w: all %d sources failed", ErrRetrievalUnavailable, len(m.sources))
	}

	merged := m.merge(collected)
	merged.Partial = failed > 0

	decision := "merged"
	if merged.Partial {
		decision = "partial"
	}
	m.record(ctx, q, path, decision, len(collected), failed, len(merged.Chunks))
	return merged, nil
}

func (m *Merger) merge(results []sourceResult) types.MergedResult {
	// Per-source score bounds, captured before any filtering, drive the
	// normalization step: sources score on different similarity scales.
	type minmax struct{ lo, hi float64 }
	bounds := map[types.SourceKind]*minmax{}
	for _, res := range results {
		for _, sc := range res.chunks {
			b := bounds[res.kind]
			if b == nil {
				bounds[res.kind] = &minmax{lo: sc.Score, hi: sc.Score}
				continue
			}
			if sc.Score < b.lo {
				b.lo = sc.Score
			}
			if sc.Score > b.hi {
				b.hi = sc.Score
			}
		}
	}

	// Exact duplicates: keep the higher-scored occurrence per content hash.
	byHash := map[string]types.ScoredChunk{}
	order := []string{}
	for _, res := range results {
		for _, sc := range res.chunks {
			existing, seen := byHash[sc.Chunk.ContentHash]
			if !seen {
				byHash[sc.Chunk.ContentHash] = sc
				order = append(order, sc.Chunk.ContentHash)
				continue
			}
			if sc.Score > existing.Score {
				byHash[sc.Chunk.ContentHash] = sc
			}
		}
	}

	unique := make([]types.ScoredChunk, 0, len(order))
	for _, hash := range order {
		unique = append(unique, byHash[hash])
	}

	// Near-duplicates: highest raw score first, drop anything too close in
	// embedding space to an already-kept chunk.
	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].Score != unique[j].Score {
			return unique[i].Score > unique[j].Score
		}
		return unique[i].Chunk.ContentHash < unique[j].Chunk.ContentHash
	})
	kept := make([]types.ScoredChunk, 0, len(unique))
	for _, cand := range unique {
		dup := false
		for _, k := range kept {
			if vecmath.Cosine(cand.Chunk.Embedding, k.Chunk.Embedding) > m.cfg.NearDupThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, cand)
		}
	}

	// Normalize per source, weight per kind, re-rank, cap at the budget.
	for i, sc := range kept {
		normalized := 1.0
		if b := bounds[sc.Chunk.SourceKind]; b != nil && b.hi > b.lo {
			normalized = (sc.Score - b.lo) / (b.hi - b.lo)
		}
		kept[i].Score = m.weight(sc.Chunk.SourceKind) * normalized
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Chunk.ContentHash < kept[j].Chunk.ContentHash
	})
	if len(kept) > m.cfg.Budget {
		kept = kept[:m.cfg.Budget]
	}
	return types.MergedResult{Chunks: kept}
}

func (m *Merger) weight(kind types.SourceKind) float64 {
	if w, ok := m.cfg.Weights[kind]; ok {
		return w
	}
	return 1.0
}

func (m *Merger) record(ctx context.Context, q types.Query, path types.Path, decision string, ok, failed, kept int) {
	if m.sink == nil {
		return
	}
	event := types.AuditEvent{
		Timestamp: time.Now().UTC(),
		QueryID:   q.ID,
		SessionID: q.SessionID,
		Stage:     types.StageRetrieval,
		Decision:  decision,
		Rules: []string{
			fmt.Sprintf("path:%s", path),
			fmt.Sprintf("sources_ok:%d", ok),
			fmt.Sprintf("sources_failed:%d", failed),
			fmt.Sprintf("kept:%d", kept),
		},
	}
	if err := m.sink.Append(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("retrieval: audit append for query %s: %v", q.ID, err)
	}
}
