package ratelimiter

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/authstarter/pkg/clientip"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// KeyFunc derives the bucket key for a request.
type KeyFunc func(r *http.Request) string

// ByClientIP keys on the client address resolved by clientip.
func ByClientIP(prefix string) KeyFunc {
	return func(r *http.Request) string {
		return prefix + clientip.FromRequest(r)
	}
}

// Middleware rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers. Store errors fail open and are logged.
func Middleware(l Limiter, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed", logger.Component("ratelimiter"), logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter().Seconds()))))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
