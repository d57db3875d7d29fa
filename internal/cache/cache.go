// Package cache provides the layered fetch cache used during ingestion so
// repeated collection runs do not refetch unchanged source pages.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a source URL
func CacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "daybrief:v1:" + hex.EncodeToString(hash[:])
}
