package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardwise/warden/internal/backend"
	"github.com/cardwise/warden/pkg/types"
)

// Document is a raw knowledge source before chunking and embedding.
type Document struct {
	ID   string
	Kind types.SourceKind
	Text string
}

// DefaultPolicyDocuments is the built-in official-policy corpus, used when no
// external policy document store is configured.
func DefaultPolicyDocuments() []Document {
	return []Document{
		{
			ID:   "credit_risk_policy",
			Kind: types.SourcePolicyDoc,
			Text: "CREDIT & RISK POLICY\n" +
				"Credit applications are evaluated on credit bureau reports, income " +
				"verification, payment history, and internal risk assessment. Most credit " +
				"decisions are automated using data models, but final approval is subject to " +
				"regulatory compliance and underwriting standards.",
		},
		{
			ID:   "third_party_risk_management",
			Kind: types.SourcePolicyDoc,
			Text: "THIRD PARTY RISK MANAGEMENT\n" +
				"We partner with select third-party service providers to improve customer " +
				"experience and operational efficiency. All third parties must adhere to " +
				"federal regulations, our data privacy standards, and ongoing risk assessments.",
		},
		{
			ID:   "purchase_protection_policy",
			Kind: types.SourcePolicyDoc,
			Text: "PURCHASE PROTECTION\n" +
				"Eligible purchases charged to the card may be covered against accidental " +
				"damage or theft for up to 90 days from the purchase date, subject to per-claim " +
				"and per-year limits. Coverage terms vary by card product.",
		},
	}
}

// DefaultFAQDocuments is the built-in FAQ corpus covering the rewards
// categories and common servicing questions.
func DefaultFAQDocuments() []Document {
	return []Document{
		{
			ID:   "faq_rewards_airfare",
			Kind: types.SourceFAQ,
			Text: "Rewards on airfare: book a scheduled passenger flight directly with the " +
				"airline or through the card travel portal. Vacation packages and bookings the " +
				"airline does not charge directly do not earn the bonus rate.",
		},
		{
			ID:   "faq_rewards_hotels",
			Kind: types.SourceFAQ,
			Text: "Rewards on hotels: prepay or pay at check-out directly with the hotel. " +
				"Vacation packages, third-party bookings, timeshares, and banquet or event " +
				"charges are excluded.",
		},
		{
			ID:   "faq_rewards_car_rentals",
			Kind: types.SourceFAQ,
			Text: "Rewards on select car rentals: rent directly from an eligible rental " +
				"company, including international locations. Indirect bookings that are not " +
				"charged by the rental company do not qualify.",
		},
		{
			ID:   "faq_rewards_shipping",
			Kind: types.SourceFAQ,
			Text: "Rewards on shipping: pay a U.S.-based courier or freight shipper for " +
				"domestic or international shipping. Non-U.S. shippers and mixed purchases not " +
				"coded as shipping are excluded.",
		},
		{
			ID:   "faq_rewards_restaurants",
			Kind: types.SourceFAQ,
			Text: "Rewards at restaurants: U.S. restaurants, including fast food, earn the " +
				"dining rate when the merchant is coded as a restaurant. Restaurants inside " +
				"hotels or casinos may not qualify.",
		},
		{
			ID:   "faq_rewards_office_supplies",
			Kind: types.SourceFAQ,
			Text: "Rewards at office supply stores: purchases made directly at U.S. office " +
				"supply stores qualify. Office supplies bought at pharmacies, superstores, or " +
				"warehouse clubs do not.",
		},
		{
			ID:   "faq_card_application",
			Kind: types.SourceFAQ,
			Text: "Card applications: standard documentation includes proof of identity, " +
				"proof of income, and a valid residential address. Decisions usually arrive " +
				"within minutes but can take up to 14 days.",
		},
		{
			ID:   "faq_atm_compensation",
			Kind: types.SourceFAQ,
			Text: "Failed ATM transactions: when a withdrawal fails after the account is " +
				"debited, the amount is provisionally re-credited within two business days " +
				"while the dispute is investigated, per the servicing compensation procedure.",
		},
	}
}

// SplitDocument chunks a document body so single chunks stay within the
// embedding token budget.
func SplitDocument(text string, size int) []string {
	if size <= 0 {
		size = 2000
	}
	text = strings.TrimSpace(text)
	if len(text) <= size {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// ChunkSink is anything chunks can be loaded into. Both the memory and redis
// indices satisfy it via thin adapters in the app wiring.
type ChunkSink interface {
	Add(ctx context.Context, chunks ...types.KnowledgeChunk) error
}

// Seed embeds and indexes a document set. Documents larger than chunkSize
// are split; chunk IDs get a part suffix.
func Seed(ctx context.Context, embedder backend.Embedder, sink ChunkSink, docs []Document, chunkSize int) error {
	for _, doc := range docs {
		parts := SplitDocument(doc.Text, chunkSize)
		for i, part := range parts {
			sourceID := doc.ID
			if len(parts) > 1 {
				sourceID = fmt.Sprintf("%s_part_%d", doc.ID, i+1)
			}
			vec, err := embedder.Embed(ctx, part)
			if err != nil {
				return fmt.Errorf("seed %s: %w", sourceID, err)
			}
			chunk := types.KnowledgeChunk{
				SourceID:    sourceID,
				SourceKind:  doc.Kind,
				Text:        part,
				Embedding:   vec,
				ContentHash: HashContent(part),
			}
			if err := sink.Add(ctx, chunk); err != nil {
				return fmt.Errorf("seed %s: %w", sourceID, err)
			}
		}
	}
	return nil
}
