package alerts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// cacheStore is the subset of cache behavior the enhancer needs
type cacheStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// cachedEnhancer wraps a WarningEnhancer with content-addressed caching so
// routes with the same risk profile reuse one enhancement.
type cachedEnhancer struct {
	enhancer WarningEnhancer
	cache    cacheStore
}

// NewCachedEnhancer wraps enhancer with the given cache
func NewCachedEnhancer(enhancer WarningEnhancer, cache cacheStore) WarningEnhancer {
	return &cachedEnhancer{enhancer: enhancer, cache: cache}
}

func (c *cachedEnhancer) EnhanceWarning(ctx context.Context, raw RawWarning) (string, error) {
	key := warningContentHash(raw)
	if msg, ok := c.cache.Get(key); ok {
		return msg, nil
	}

	msg, err := c.enhancer.EnhanceWarning(ctx, raw)
	if err != nil {
		return "", err
	}

	c.cache.Set(key, msg)
	return msg, nil
}

// warningContentHash derives a stable cache key from the fields that shape
// the enhanced message. Crime types are sorted so ordering does not split
// the cache.
func warningContentHash(raw RawWarning) string {
	types := make([]string, len(raw.DominantCrimeTypes))
	copy(types, raw.DominantCrimeTypes)
	sort.Strings(types)

	var b strings.Builder
	b.WriteString(raw.RiskLevel)
	b.WriteString("|")
	b.WriteString(raw.TemplateMessage)
	b.WriteString("|")
	b.WriteString(strings.Join(types, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
