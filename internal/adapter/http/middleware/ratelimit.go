package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitCounter counts requests in fixed windows.
type RateLimitCounter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitRules derives per-group rules from one base budget. Writes get
// half of the read budget.
func RateLimitRules(requests int, window time.Duration) map[string]RateLimitRule {
	base := int64(max(requests, 1))
	write := max(base/2, 1)
	return map[string]RateLimitRule{
		"setup":    {Limit: write, Window: window},
		"transact": {Limit: write, Window: window},
		"wallets":  {Limit: base, Window: window},
		"history":  {Limit: base, Window: window},
		"export":   {Limit: max(base/10, 1), Window: window},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Counters are kept per client IP. When the counter store fails the request
// is let through.
func RateLimiter(store RateLimitCounter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			l := logger.FromContext(c.Request.Context(), log)
			l.Warn().Err(err).
				Str("group", group).
				Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := max(result.ResetAt-time.Now().Unix(), 1)
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Abort(c, apperror.ErrRateLimitExceeded())
			return
		}

		c.Next()
	}
}
