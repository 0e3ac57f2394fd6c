package knowledge

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/pkg/types"
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := HashingEmbedder{Dim: 64}
	ctx := context.Background()

	a, err := e.Embed(ctx, "points on airfare bookings")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "points on airfare bookings")
	require.NoError(t, err)
	assert.Equal(t, a, b, "same text must embed identically")
	assert.Len(t, a, 64)

	c, err := e.Embed(ctx, "a completely different sentence about shipping")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHashingEmbedderIgnoresCaseAndPunctuation(t *testing.T) {
	e := HashingEmbedder{}
	ctx := context.Background()

	a, err := e.Embed(ctx, "Hotel stays earn points!")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "hotel stays earn points")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMemoryIndexTopK(t *testing.T) {
	ctx := context.Background()
	e := HashingEmbedder{}
	ix := NewMemoryIndex()

	texts := []string{
		"airfare bookings earn bonus points with the airline",
		"hotel stays booked directly earn rewards",
		"shipping with a US courier is eligible",
	}
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, types.KnowledgeChunk{
			SourceID:   texts[i][:10],
			SourceKind: types.SourceFAQ,
			Text:       text,
			Embedding:  vec,
		}))
	}
	require.Equal(t, 3, ix.Len())

	query, err := e.Embed(ctx, "do airfare bookings with the airline earn points")
	require.NoError(t, err)

	top, err := ix.TopK(ctx, query, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Contains(t, top[0].Chunk.Text, "airfare")
	assert.GreaterOrEqual(t, top[0].Score, top[1].Score)
}

func TestMemoryIndexFillsContentHash(t *testing.T) {
	ctx := context.Background()
	ix := NewMemoryIndex()
	require.NoError(t, ix.Add(ctx, types.KnowledgeChunk{Text: "abc", Embedding: []float32{1}}))

	top, err := ix.TopK(ctx, []float32{1}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, HashContent("abc"), top[0].Chunk.ContentHash)
}

func TestRedisIndexRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	e := HashingEmbedder{}
	ix := NewRedisIndex(client, "test:faq")

	vec, err := e.Embed(ctx, "car rentals booked directly qualify")
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, types.KnowledgeChunk{
		SourceID:   "faq_car",
		SourceKind: types.SourceFAQ,
		Text:       "car rentals booked directly qualify",
		Embedding:  vec,
	}))

	query, err := e.Embed(ctx, "do car rentals qualify")
	require.NoError(t, err)
	top, err := ix.TopK(ctx, query, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "faq_car", top[0].Chunk.SourceID)
	assert.Positive(t, top[0].Score)
}

func TestRedisIndexUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ix := NewRedisIndex(client, "test:down")
	mr.Close()

	_, err := ix.TopK(context.Background(), []float32{1, 2}, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrIndexUnavailable)
}

func TestSeedSplitsAndIndexes(t *testing.T) {
	ctx := context.Background()
	e := HashingEmbedder{}
	ix := NewMemoryIndex()

	docs := []Document{{ID: "big", Kind: types.SourcePolicyDoc, Text: makeText(5000)}}
	require.NoError(t, Seed(ctx, e, ix, docs, 2000))
	assert.Equal(t, 3, ix.Len(), "5000 chars at size 2000 makes three chunks")

	top, err := ix.TopK(ctx, mustEmbed(t, e, "alpha"), 3)
	require.NoError(t, err)
	for _, sc := range top {
		assert.Contains(t, sc.Chunk.SourceID, "big_part_")
		assert.NotEmpty(t, sc.Chunk.ContentHash)
		assert.Equal(t, types.SourcePolicyDoc, sc.Chunk.SourceKind)
	}
}

func TestSeedDefaultCorpora(t *testing.T) {
	ctx := context.Background()
	e := HashingEmbedder{}
	policyIx := NewMemoryIndex()
	faqIx := NewMemoryIndex()

	require.NoError(t, Seed(ctx, e, policyIx, DefaultPolicyDocuments(), 0))
	require.NoError(t, Seed(ctx, e, faqIx, DefaultFAQDocuments(), 0))
	assert.Equal(t, len(DefaultPolicyDocuments()), policyIx.Len())
	assert.Equal(t, len(DefaultFAQDocuments()), faqIx.Len())
}

func TestSplitDocument(t *testing.T) {
	assert.Nil(t, SplitDocument("   ", 100))
	assert.Equal(t, []string{"short"}, SplitDocument("short", 100))
	parts := SplitDocument(makeText(250), 100)
	assert.Len(t, parts, 3)
}

func makeText(n int) string {
	out := make([]byte, n)
	words := "alpha beta gamma delta epsilon "
	for i := range out {
		out[i] = words[i%len(words)]
	}
	return string(out)
}

func mustEmbed(t *testing.T, e HashingEmbedder, text string) []float32 {
	t.Helper()
	vec, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vec
}
