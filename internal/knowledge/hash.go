package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the content hash used for exact-duplicate detection
// across indices.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sha256:" + hex.EncodeToString(sum[:])
}
