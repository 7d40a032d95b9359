package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Compute derives the canonical identity hash for an email's content.
// Equal trimmed (subject, body, sender) triples always produce the same
// fingerprint; the newline separator keeps field boundaries unambiguous.
func Compute(subject, body, sender string) string {
	norm := strings.TrimSpace(subject) + "\n" + strings.TrimSpace(body) + "\n" + strings.TrimSpace(sender)
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
