package guardrail

import (
	"regexp"
	"sort"

	"github.com/cardwise/warden/internal/policy"
)

// span is one detected PII occurrence in the original (unnormalized) text.
type span struct {
	start int
	end   int
	kind  policy.EntityKind
}

var detectors = map[policy.EntityKind]*regexp.Regexp{
	policy.EntityCreditCard: regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
	policy.EntitySSN:        regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	policy.EntityEmail:      regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	policy.EntityPhone:      regexp.MustCompile(`\b(?:\+?1[ .-]?)?\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}\b`),
}

// detect runs the configured entity matchers independently and returns all
// raw spans. Entity kinds without a matcher are ignored.
func detect(text string, kinds []policy.EntityKind) []span {
	var spans []span
	for _, kind := range kinds {
		re, ok := detectors[kind]
		if !ok {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1], kind: kind})
		}
	}
	return spans
}

// resolveOverlaps keeps a non-overlapping subset of spans, longest match
// first when spans collide.
func resolveOverlaps(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		if spans[i].end != spans[j].end {
			return spans[i].end > spans[j].end
		}
		return spans[i].kind < spans[j].kind
	})

	kept := spans[:0]
	lastEnd := -1
	for _, sp := range spans {
		if sp.start < lastEnd {
			continue
		}
		kept = append(kept, sp)
		lastEnd = sp.end
	}
	return kept
}

// mask replaces every detected span with the masking token, preserving the
// configured number of trailing significant characters per entity kind.
// Separators (spaces, dashes, the @ and dots of an email) stay in place so
// the shape of the value remains readable.
func mask(text string, spans []span, visibleSuffix map[policy.EntityKind]int) string {
	out := []byte(text)
	for _, sp := range spans {
		segment := out[sp.start:sp.end]

		significant := 0
		for _, c := range segment {
			if isSignificant(c) {
				significant++
			}
		}

		visible := visibleSuffix[sp.kind]
		if visible > significant {
			visible = significant
		}
		toMask := significant - visible

		masked := 0
		for i, c := range segment {
			if !isSignificant(c) {
				continue
			}
			if masked < toMask {
				segment[i] = '*'
				masked++
			}
		}
	}
	return string(out)
}

func isSignificant(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	default:
		return false
	}
}
