package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CatalogCachePrefix namespaces cached catalog API responses.
const CatalogCachePrefix = "cache:catalog:"

const (
	cacheOpTimeout    = 2 * time.Second
	cacheSweepTimeout = 3 * time.Second
	cacheSweepRounds  = 10
)

// CatalogCacheKey builds a key from ordered name=value pairs.
func CatalogCacheKey(scope string, pairs ...interface{}) string {
	var b strings.Builder
	b.WriteString(CatalogCachePrefix)
	b.WriteString(scope)
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, ":%v=%v", pairs[i], pairs[i+1])
	}
	return b.String()
}

// CachedResponse returns a previously stored success envelope. A nil redis client is always a miss.
func CachedResponse(ctx context.Context, key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// CacheResponse stores data wrapped in the success envelope so hits can be written verbatim.
func CacheResponse(ctx context.Context, key string, data interface{}, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil || ttl <= 0 {
		return
	}
	b, err := json.Marshal(JSONResponse{Code: 0, Message: "success", Data: data})
	if err != nil {
		Sugar.Warnf("cache encode failed key=%s err=%v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateCatalogCache drops every cached catalog page after content changes.
func InvalidateCatalogCache(ctx context.Context) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheSweepTimeout)
	defer cancel()
	var cursor uint64
	for round := 0; round < cacheSweepRounds; round++ {
		keys, next, err := rc.Scan(ctx, cursor, CatalogCachePrefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("catalog cache scan failed: %v", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.Del(ctx, keys...).Err(); err != nil {
				Sugar.Warnf("catalog cache delete failed: %v", err)
			}
		}
		if cursor = next; cursor == 0 {
			return
		}
	}
}
