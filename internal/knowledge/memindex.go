// Package knowledge provides the in-process knowledge indices, the seeded
// corpus, and a deterministic local embedder for dev and test runs.
package knowledge

import (
	"context"
	"sort"
	"sync"

	"github.com/cardwise/warden/internal/vecmath"
	"github.com/cardwise/warden/pkg/types"
)

// MemoryIndex is a brute-force cosine-similarity index. Good enough for the
// built-in corpus sizes; larger deployments point the merger at an external
// index instead.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []types.KnowledgeChunk
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add appends chunks to the index. Chunks without a content hash get one
// computed from their text.
func (ix *MemoryIndex) Add(_ context.Context, chunks ...types.KnowledgeChunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, c := range chunks {
		if c.ContentHash == "" {
			c.ContentHash = HashContent(c.Text)
		}
		ix.chunks = append(ix.chunks, c)
	}
	return nil
}

// Len returns the number of indexed chunks.
func (ix *MemoryIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

func (ix *MemoryIndex) TopK(_ context.Context, vector []float32, k int) ([]types.ScoredChunk, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scored := make([]types.ScoredChunk, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		scored = append(scored, types.ScoredChunk{Chunk: c, Score: vecmath.Cosine(vector, c.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
