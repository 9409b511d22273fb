package embedding

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the deterministic content hash used to detect stale
// cached vectors. Any change to the exact text changes the hash and forces
// recomputation; there is no TTL-based invalidation.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
