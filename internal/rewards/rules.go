// Package rewards maps a purchase description onto a reward category with
// deterministic keyword rules. It runs in-process so the REWARDS path has a
// structured recommendation even when generation is degraded.
package rewards

import "strings"

// Recommendation is the structured output of the rule engine. The generator
// rewrites it into prose; degraded responses render it verbatim.
type Recommendation struct {
	Category    string `json:"category"`
	TLDR        string `json:"tl_dr"`
	HowToEarn   string `json:"how_to_earn"`
	WhatToAvoid string `json:"what_to_avoid"`
	Notes       string `json:"notes,omitempty"`
}

// FallbackCategory marks a request the rules could not classify.
const FallbackCategory = "Unknown / Needs Clarification"

type rule struct {
	keywords []string
	reco     Recommendation
}

// Ordered. First matching rule wins, so more specific vocabularies (car
// rental brands, shipper names) come before generic ones.
var rules = []rule{
	{
		keywords: []string{"flight", "airfare", "airline"},
		reco: Recommendation{
			Category:    "Airfare",
			TLDR:        "Book directly with the airline or through the card travel portal, not as part of a vacation package.",
			HowToEarn:   "Pay a scheduled passenger flight directly to the airline or through the travel portal.",
			WhatToAvoid: "Vacation packages or bookings where the airline does not charge your card directly.",
			Notes:       "Some third parties may still qualify if the airline ultimately charges your card.",
		},
	},
	{
		keywords: []string{"hotel", "stay", "resort"},
		reco: Recommendation{
			Category:    "Hotels",
			TLDR:        "Book directly with the hotel; no vacation packages.",
			HowToEarn:   "Prepay or pay at check-in/check-out directly with the hotel.",
			WhatToAvoid: "Vacation packages, third-party bookings, timeshares, banquets, or event charges.",
		},
	},
	{
		keywords: []string{
			"car rental", "rental car", "avis", "hertz", "sixt", "enterprise",
			"alamo", "budget", "thrifty", "national", "payless", "fox", "dollar",
		},
		reco: Recommendation{
			Category:    "Select Car Rentals",
			TLDR:        "Rent directly from eligible rental companies.",
			HowToEarn:   "Book directly with eligible rental companies, even internationally.",
			WhatToAvoid: "Vacation packages or indirect bookings that are not charged by the rental company.",
		},
	},
	{
		keywords: []string{"office supply", "staples", "office depot"},
		reco: Recommendation{
			Category:    "U.S. Office Supply Stores",
			TLDR:        "Buy directly at U.S. office supply stores.",
			HowToEarn:   "Pay directly at qualifying office supply stores for business-related supplies.",
			WhatToAvoid: "Office supplies purchased at pharmacies, superstores, or warehouse clubs.",
		},
	},
	{
		keywords: []string{"shipping", "courier", "ups", "fedex", "usps"},
		reco: Recommendation{
			Category:    "U.S. Shipping",
			TLDR:        "Use U.S.-based shipping providers, whether shipping domestically or internationally.",
			HowToEarn:   "Pay a U.S.-based courier or freight shipper for shipping.",
			WhatToAvoid: "Non-U.S. based shippers or mixed purchases not coded as shipping.",
		},
	},
	{
		keywords: []string{"restaurant", "dining", "fast food"},
		reco: Recommendation{
			Category:    "U.S. Restaurants",
			TLDR:        "Earn at U.S. restaurants, including fast food, when coded as restaurants.",
			HowToEarn:   "Dine at U.S.-based merchants coded as restaurants.",
			WhatToAvoid: "Restaurants inside hotels or casinos, venues not coded as restaurants, or U.S.-owned restaurants abroad.",
		},
	},
	{
		keywords: []string{"online retail", "ecommerce", "e-commerce", "webshop", "online store", "internet purchase"},
		reco: Recommendation{
			Category:    "U.S. Online Retail Purchases",
			TLDR:        "Buy online from U.S. retail merchants that sell physical goods directly.",
			HowToEarn:   "Pay on a U.S. retailer's website or app so the transaction is classified as an internet purchase.",
			WhatToAvoid: "Restaurants, supermarkets, gas stations, buy-now-pay-later programs, phone or mail orders, or service-only merchants.",
		},
	},
}

// Recommend classifies the request text. It always returns a usable
// recommendation; unmatched requests get the clarification fallback.
func Recommend(text string) Recommendation {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.reco
			}
		}
	}
	return Recommendation{
		Category:    FallbackCategory,
		TLDR:        "Tell me if it's airfare, hotel, car rental, office supplies, shipping, online retail, or restaurants.",
		HowToEarn:   "Clarify the purchase type so it can be mapped to the right reward category.",
		WhatToAvoid: "Assuming a category without correct merchant classification.",
	}
}

// Render formats a recommendation as evidence text for the generator and for
// degraded responses.
func (r Recommendation) Render() string {
	var b strings.Builder
	b.WriteString("Reward category: " + r.Category + "\n")
	b.WriteString("Summary: " + r.TLDR + "\n")
	b.WriteString("How to earn: " + r.HowToEarn + "\n")
	b.WriteString("What to avoid: " + r.WhatToAvoid)
	if r.Notes != "" {
		b.WriteString("\nNotes: " + r.Notes)
	}
	return b.String()
}
