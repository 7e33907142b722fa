package cache

import (
	"time"
)

// Enhanced warnings change only when the risk profile changes, so a long TTL
// is safe.
const warningTTL = 24 * time.Hour

const warningKeyPrefix = "warning:"

// WarningCacheAdapter exposes the main Cache to the alerts package as a
// plain string store, keyed by content hash
type WarningCacheAdapter struct {
	cache *Cache
}

// NewWarningCacheAdapter creates an adapter for enhanced warning caching
func NewWarningCacheAdapter(cache *Cache) *WarningCacheAdapter {
	return &WarningCacheAdapter{cache: cache}
}

// Get returns the cached warning for the given content hash
func (a *WarningCacheAdapter) Get(key string) (string, bool) {
	var message string
	found, err := a.cache.Get(warningKeyPrefix+key, &message)
	if err != nil || !found {
		return "", false
	}
	return message, true
}

// Set stores an enhanced warning under its content hash
func (a *WarningCacheAdapter) Set(key, value string) {
	// marshal of a string cannot fail
	_ = a.cache.Set(warningKeyPrefix+key, value, warningTTL, "enhancer")
}
