package ratelimiter

import (
	"net/http"
	"strconv"

	"github.com/componenthub/hubauth/pkg/clientip"
)

// KeyFunc extracts the bucket key from a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by the address clientip.Middleware stored,
// resolving it from the request when the middleware did not run.
func ByClientIP(prefix string) KeyFunc {
	return func(r *http.Request) string {
		ip := clientip.FromContext(r.Context())
		if ip == "" {
			ip = clientip.GetIP(r)
		}
		if ip == "" {
			return ""
		}
		return prefix + ip
	}
}

// Middleware rejects requests once their bucket is empty. onLimited renders
// the rejection; nil falls back to a plain 429.
func Middleware(b *Bucket, keyFunc KeyFunc, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimited == nil {
		onLimited = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := b.Allow(r.Context(), key)
			if err != nil {
				// Storage outages must not lock users out.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if secs := int(res.RetryAfter().Seconds()); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
