package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"dealscope.dev/dealscope/internal/globaltime"
	"dealscope.dev/dealscope/internal/ratelimit"
)

// rateLimitMiddleware enforces the per-client sliding window, keyed by the
// caller's IP. Every response carries the X-RateLimit-* headers; a denied
// request gets a 429 with the seconds to wait.
func rateLimitMiddleware(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			allowed := limiter.Allow(key)

			resetAt, pending := limiter.ResetTimeFor(key)
			if !pending {
				resetAt = globaltime.Now()
			}
			header := c.Response().Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingFor(key)))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(resetAt.Sub(globaltime.Now()).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				header.Set("Retry-After", strconv.Itoa(retryAfter))
				return fail(c, http.StatusTooManyRequests, "Rate limit exceeded", map[string]any{
					"retry_after_seconds": retryAfter,
				})
			}
			return next(c)
		}
	}
}
