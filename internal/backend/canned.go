package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardwise/warden/pkg/types"
)

// CannedGenerator composes an answer directly from the retrieved evidence
// without calling a hosted model. Used for local development, the demo CLI,
// and as the degraded stand-in when no real backend is configured.
type CannedGenerator struct {
	// MaxExcerptChars bounds how much of each evidence chunk is quoted.
	MaxExcerptChars int
}

func (g CannedGenerator) Generate(_ context.Context, query types.Query, evidence []types.ScoredChunk) (string, error) {
	limit := g.MaxExcerptChars
	if limit <= 0 {
		limit = 400
	}

	if len(evidence) == 0 {
		return "I don't have supporting material for that question. Please contact support to confirm.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is what the available material says about %q:\n", query.Text)
	for i, ev := range evidence {
		text := strings.TrimSpace(ev.Chunk.Text)
		if len(text) > limit {
			text = text[:limit] + "…"
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, ev.Chunk.SourceID, text)
	}
	b.WriteString("\n\nIf anything is unclear, please call the number on the back of your card to confirm.")
	return b.String(), nil
}
