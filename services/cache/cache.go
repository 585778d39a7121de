package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// BlockKey is the key whose presence stops all requests to a rate-limited publisher
func BlockKey(publisher string) string {
	return publisher + "_rate_limited"
}

// PageKey is the key of a fetched page. URLs are hashed to stay inside
// memcache's key length and character limits.
func PageKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "page:" + hex.EncodeToString(sum[:])
}
