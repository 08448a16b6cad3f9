package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "hookflo/internal/api/context"
	"hookflo/internal/pkg/errors"
)

type RateLimiter struct {
	store *sync.Map // map[string]*Bucket
	now   func() time.Time
}

type Bucket struct {
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{store: &sync.Map{}, now: time.Now}
}

// Run evicts idle buckets until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle(10 * time.Minute)
		}
	}
}

func (rl *RateLimiter) evictIdle(idle time.Duration) {
	now := rl.now()
	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > idle {
			rl.store.Delete(key)
		}
		bucket.mu.Unlock()
		return true
	})
}

// Allow takes one token from key's bucket. Buckets hold perMinute tokens and
// refill continuously. A non-positive limit disables limiting.
func (rl *RateLimiter) Allow(key string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	now := rl.now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     float64(perMinute),
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	limit := float64(perMinute)
	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * limit / 60.0
	if bucket.tokens > limit {
		bucket.tokens = limit
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// ByWebhook charges inbound calls to the webhook they target, falling back to
// the client address.
func ByWebhook(r *http.Request) string {
	if ps, ok := r.Context().Value(apiContext.Params).(httprouter.Params); ok {
		if id := ps.ByName("webhook_id"); id != "" {
			return "webhook:" + id
		}
	}
	return "ip:" + clientIP(r)
}

// ByUser charges authenticated calls to the caller; it must run after AuthMiddleware.
func ByUser(r *http.Request) string {
	if claims := ClaimsFrom(r.Context()); claims != nil {
		return "user:" + claims.UserID
	}
	return "ip:" + clientIP(r)
}

func (rl *RateLimiter) Limit(perMinute int, key KeyFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !rl.Allow(k, perMinute) {
				log.Warn().Str("key", k).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}
			next(w, r)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
