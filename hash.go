package wordpop

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of the normalized text, so that
// "Hello", " hello " and "HELLO" share one cache entry.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(NormalizeKey(text)))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a cache key for one source's outcome on a text hash.
func CacheKey(source SourceID, hash string) string {
	return source.String() + ":" + hash
}

// CacheKeyExtended also includes the target language, for sources whose output
// depends on it.
func CacheKeyExtended(source SourceID, hash, targetLang string) string {
	return source.String() + ":" + hash + ":" + targetLang
}
