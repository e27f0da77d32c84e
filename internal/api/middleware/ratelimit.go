package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/internal/cache"
	"github.com/rs/zerolog"
)

const rateLimitWindow = time.Minute

// RateLimit counts requests per tenant in fixed one-minute windows held in
// the cache.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
	logger         zerolog.Logger
	now            func() time.Time
}

// NewRateLimit creates a new RateLimit middleware. A nil cache or a
// non-positive limit disables limiting.
func NewRateLimit(c cache.Cache, requestsPerMin int, logger zerolog.Logger) *RateLimit {
	return &RateLimit{
		cache:          c,
		requestsPerMin: requestsPerMin,
		logger:         logger.With().Str("component", "ratelimit").Logger(),
		now:            time.Now,
	}
}

// Limit applies rate limiting to the tenant set by the Tenant middleware.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl == nil || rl.cache == nil || rl.requestsPerMin <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		tenantID, ok := GetTenantID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		key := cache.RateLimitKey(tenantID, now, rateLimitWindow)
		count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateLimitWindow)
		if err != nil {
			// fail open
			rl.logger.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("rate limit counter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		reset := now.Truncate(rateLimitWindow).Add(rateLimitWindow)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			retry := int(reset.Sub(now).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
