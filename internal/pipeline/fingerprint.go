package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Fingerprint returns the dedup key for a question: a SHA-256 digest of the
// case-folded, whitespace-collapsed question text. Options are intentionally
// excluded, so the same question with reworded options still deduplicates.
func Fingerprint(question string) string {
	sum := sha256.Sum256([]byte(normalizeText(question)))
	return hex.EncodeToString(sum[:])
}

// normalizeText lower-cases s and collapses every whitespace run to a single
// space, trimming the ends.
func normalizeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}
