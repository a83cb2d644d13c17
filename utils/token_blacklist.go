package utils

import (
	"context"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const revokedKeyPrefix = "jwt:revoked:"

// revoked holds tokens in memory until they expire when Redis is unavailable.
var revoked = cmap.New[time.Time]()

// RevokeToken invalidates an admin token until its natural expiry.
func RevokeToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedKeyPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	revoked.Set(token, expiresAt)
}

// IsTokenRevoked reports whether token was revoked before it expired.
func IsTokenRevoked(ctx context.Context, token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedKeyPrefix+token).Result()
		if err == nil && n > 0 {
			return true
		}
		// fail open on redis errors, the in-memory set still applies
	}
	expiresAt, ok := revoked.Get(token)
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revoked.Remove(token)
		return false
	}
	return true
}
