package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ClaimKey generates a cache key from a claim's text. The text is
// normalized (lowercased, whitespace collapsed) so trivially
// rephrased extractions of the same claim hit the same cached
// verdict across runs.
func ClaimKey(claimText string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(claimText), " "))
	hash := sha256.Sum256([]byte(norm))
	return "faktgate:v1:" + hex.EncodeToString(hash[:])
}
