package types

// SourceKind identifies which knowledge source a chunk came from.
type SourceKind string

const (
	SourcePolicyDoc SourceKind = "POLICY_DOC"
	SourceFAQ       SourceKind = "FAQ"
	// SourceRuleEngine marks synthetic evidence produced in-process by the
	// rewards rule engine rather than retrieved from an index.
	SourceRuleEngine SourceKind = "RULE_ENGINE"
)

// KnowledgeChunk is a unit of retrievable evidence. Owned by its source
// index; the merger only reads.
type KnowledgeChunk struct {
	SourceID    string     `json:"source_id"`
	SourceKind  SourceKind `json:"source_kind"`
	Text        string     `json:"text"`
	Embedding   []float32  `json:"embedding,omitempty"`
	ContentHash string     `json:"content_hash"`
}

// ScoredChunk pairs a chunk with its similarity score. Before merging the
// score is the raw per-source similarity; after merging it is the weighted,
// normalized combined score.
type ScoredChunk struct {
	Chunk KnowledgeChunk `json:"chunk"`
	Score float64        `json:"score"`
}

// MergedResult is the deduplicated, ranked evidence set for one query.
// Partial marks that at least one source was unavailable.
type MergedResult struct {
	Chunks  []ScoredChunk `json:"chunks"`
	Partial bool          `json:"partial"`
}
