// Package backend declares the narrow capability interfaces the core depends
// on. The core has no compile-time dependency on any hosted-model or
// vector-database product; implementations live behind these contracts and
// tests substitute fakes.
package backend

import (
	"context"
	"errors"

	"github.com/cardwise/warden/pkg/types"
)

var (
	ErrEmbeddingUnavailable  = errors.New("embedding service unavailable")
	ErrIndexUnavailable      = errors.New("vector index unavailable")
	ErrGenerationTimeout     = errors.New("generation timed out")
	ErrGenerationRateLimited = errors.New("generation rate limited")
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex returns the k nearest chunks for a query vector, highest
// similarity first.
type VectorIndex interface {
	TopK(ctx context.Context, vector []float32, k int) ([]types.ScoredChunk, error)
}

// Generator turns (query, evidence, role) into prose.
type Generator interface {
	Generate(ctx context.Context, query types.Query, evidence []types.ScoredChunk) (string, error)
}
