package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/internal/vecmath"
	"github.com/cardwise/warden/pkg/types"
)

// RedisIndex stores chunks as JSON values in a single Redis hash and scores
// them client-side. It lets several gateway replicas share one FAQ corpus
// without shipping a dedicated vector database.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client, keyPrefix string) *RedisIndex {
	return &RedisIndex{client: client, key: keyPrefix + ":chunks"}
}

// Add upserts chunks keyed by content hash.
func (ix *RedisIndex) Add(ctx context.Context, chunks ...types.KnowledgeChunk) error {
	fields := make(map[string]any, len(chunks))
	for _, c := range chunks {
		if c.ContentHash == "" {
			c.ContentHash = HashContent(c.Text)
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		fields[c.ContentHash] = raw
	}
	if len(fields) == 0 {
		return nil
	}
	if err := ix.client.HSet(ctx, ix.key, fields).Err(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrIndexUnavailable, err)
	}
	return nil
}

func (ix *RedisIndex) TopK(ctx context.Context, vector []float32, k int) ([]types.ScoredChunk, error) {
	values, err := ix.client.HGetAll(ctx, ix.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrIndexUnavailable, err)
	}

	scored := make([]types.ScoredChunk, 0, len(values))
	for _, raw := range values {
		var c types.KnowledgeChunk
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		scored = append(scored, types.ScoredChunk{Chunk: c, Score: vecmath.Cosine(vector, c.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
