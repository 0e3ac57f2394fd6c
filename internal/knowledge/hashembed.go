package knowledge

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/cardwise/warden/internal/vecmath"
)

// HashingEmbedder is a deterministic local embedder: each token is feature-
// hashed into a fixed-dimension bag-of-words vector. It has no semantic
// depth but gives stable, offline similarity for dev runs, the demo CLI, and
// tests. Production deployments use the bedrock embedder instead.
type HashingEmbedder struct {
	Dim int
}

func (e HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := e.Dim
	if dim <= 0 {
		dim = 128
	}
	vec := make([]float32, dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?;:\"'()[]")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		bucket := int(sum % uint32(dim))
		// Alternate sign off a second hash bit to reduce bucket collisions
		// collapsing into pure counts.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	return vecmath.Normalize(vec), nil
}
