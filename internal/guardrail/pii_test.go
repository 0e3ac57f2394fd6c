package guardrail

import (
	"testing"

	"github.com/cardwise/warden/internal/policy"
)

func TestDetectFindsConfiguredEntitiesOnly(t *testing.T) {
	text := "card 4111-1111-1111-1111 ssn 123-45-6789 phone (212) 555-0100"

	spans := detect(text, []policy.EntityKind{policy.EntitySSN})
	if len(spans) != 1 || spans[0].kind != policy.EntitySSN {
		t.Fatalf("expected one SSN span, got %v", spans)
	}

	spans = detect(text, []policy.EntityKind{policy.EntityCreditCard, policy.EntitySSN, policy.EntityPhone})
	kinds := map[policy.EntityKind]int{}
	for _, sp := range spans {
		kinds[sp.kind]++
	}
	if kinds[policy.EntityCreditCard] == 0 || kinds[policy.EntitySSN] == 0 || kinds[policy.EntityPhone] == 0 {
		t.Fatalf("expected all three kinds detected, got %v", kinds)
	}
}

func TestResolveOverlapsPrefersLongerMatch(t *testing.T) {
	spans := []span{
		{start: 5, end: 24, kind: policy.EntityCreditCard},
		{start: 5, end: 17, kind: policy.EntityPhone},
		{start: 30, end: 41, kind: policy.EntitySSN},
	}
	kept := resolveOverlaps(spans)
	if len(kept) != 2 {
		t.Fatalf("expected 2 non-overlapping spans, got %v", kept)
	}
	if kept[0].kind != policy.EntityCreditCard || kept[0].end != 24 {
		t.Fatalf("expected longer credit card span kept, got %v", kept[0])
	}
}

func TestMaskKeepsSeparatorsAndSuffix(t *testing.T) {
	text := "num 4111-1111-1111-1111 end"
	spans := detect(text, []policy.EntityKind{policy.EntityCreditCard})
	got := mask(text, resolveOverlaps(spans), map[policy.EntityKind]int{policy.EntityCreditCard: 4})
	want := "num ****-****-****-1111 end"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskSuffixLargerThanValue(t *testing.T) {
	text := "ssn 123-45-6789"
	spans := detect(text, []policy.EntityKind{policy.EntitySSN})
	got := mask(text, resolveOverlaps(spans), map[policy.EntityKind]int{policy.EntitySSN: 20})
	if got != text {
		t.Fatalf("suffix larger than value must leave text intact, got %q", got)
	}
}
