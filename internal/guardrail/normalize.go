package guardrail

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalize prepares text for rule matching: NFC normalization, case fold,
// whitespace collapse. Only matching uses the result; redaction output
// always preserves the original casing and spacing.
func normalize(s string) string {
	folded := strings.ToLower(norm.NFC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}
