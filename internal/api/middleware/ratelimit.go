package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
)

// RateLimitMiddleware allows at most requests per window for each client IP.
// Counters live in the cache; when the cache fails the request is let through.
// Forwarding headers are honored only when trustProxy is set.
func RateLimitMiddleware(cache providers.CacheProvider, requests int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	windowSeconds := int(window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	return func(next http.Handler) http.Handler {
		if cache == nil || requests <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + clientIP(r, trustProxy)

			count, ttl, err := cache.Incr(r.Context(), key, windowSeconds)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(requests))
			remaining := requests - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > int64(requests) {
				if ttl <= 0 {
					ttl = windowSeconds
				}
				w.Header().Set("Retry-After", strconv.Itoa(ttl))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the peer address, or the first forwarded address when the
// server sits behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func forwardedIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return ""
}
