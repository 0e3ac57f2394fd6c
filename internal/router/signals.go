package router

import "github.com/cardwise/warden/pkg/types"

// DefaultPathKeywords is the built-in lexical signal set. The rewards list
// mirrors the reward category vocabulary the FAQ corpus covers.
func DefaultPathKeywords() map[types.Path][]string {
	return map[types.Path][]string{
		types.PathRewards: {
			"reward", "points", "bonus", "cashback", "category",
			"hotel", "airfare", "flight", "car rental", "shipping",
			"office supply", "dining", "restaurant", "online purchase",
		},
		types.PathPolicyFAQ: {
			"policy", "faq", "purchase protection", "eligib", "coverage",
			"application", "documentation", "terms", "dispute", "fee",
			"annual fee", "interest",
		},
		types.PathInternalOps: {
			"internal", "underwriting", "compensate", "procedure",
			"workflow", "escalation", "servicing", "credit limit decision",
			"approval process", "collections",
		},
	}
}

// DefaultPathExemplars seeds the semantic signal when an embedder is wired.
func DefaultPathExemplars() map[types.Path][]string {
	return map[types.Path][]string{
		types.PathRewards: {
			"Will I earn points for booking a flight directly with the airline?",
			"Do hotel stays booked through the travel portal earn bonus rewards?",
			"Is shipping with a U.S. courier eligible for cashback?",
		},
		types.PathPolicyFAQ: {
			"What is purchase protection and who is eligible?",
			"What documentation is required for a card application?",
			"How do I dispute a charge on my statement?",
		},
		types.PathInternalOps: {
			"How are customers compensated for failed ATM transactions?",
			"Which factors feed the credit limit decision workflow?",
			"What is the escalation procedure for servicing complaints?",
		},
	}
}
