package constants

import (
	"fmt"
	"time"
)

// Redis key layout
// Pattern: raffle:{module}:{identifier}:{params?}
// Ticket inventory and reservations never live in Redis; only request level
// concerns (idempotent retries, rate limits) do.

const (
	CACHE_PREFIX = "raffle"
)

// ================== CHECKOUT ==================

const (
	// + method:route:client-key
	CACHE_KEY_IDEMPOTENCY = CACHE_PREFIX + ":idem:"

	// long enough for a buyer to retry a checkout after a dropped connection
	TTL_IDEMPOTENCY = 24 * time.Hour
)

// ================== RATE LIMITING ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:"
)

// ================== KEY BUILDERS ==================

// IdempotencyKey scopes a client supplied key to one route
func IdempotencyKey(method, route, clientKey string) string {
	return fmt.Sprintf("%s%s:%s:%s", CACHE_KEY_IDEMPOTENCY, method, route, clientKey)
}

// RateLimitKey is the sliding window of one client for one limit class
func RateLimitKey(clientIP, limitType string) string {
	return fmt.Sprintf("%s%s:%s", CACHE_KEY_RATE_LIMIT, clientIP, limitType)
}
