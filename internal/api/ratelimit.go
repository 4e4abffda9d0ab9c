package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/MereWhiplash/aria/internal/apitypes"
)

// Decision is the outcome of a rate-limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// LimitStore counts requests per key
type LimitStore interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter limits requests per client IP. Backend errors fail open.
type RateLimiter struct {
	// TrustProxyHeaders keys on X-Forwarded-For / X-Real-IP instead of the
	// connection address. Only set it behind a proxy that overwrites them.
	TrustProxyHeaders bool

	store  LimitStore
	logger *slog.Logger
	exempt map[string]bool
}

// NewRateLimiter creates a process-local limiter allowing limit requests per
// window per IP. State is lost on restart and not shared between instances.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithStore(NewMemoryLimitStore(limit, window), nil)
}

// NewRateLimiterWithStore creates a limiter on the given backend
func NewRateLimiterWithStore(store LimitStore, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		store:  store,
		logger: logger,
		exempt: map[string]bool{"/health": true},
	}
}

// Middleware applies the limit
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		d, err := rl.store.Allow(r.Context(), clientIP(r, rl.TrustProxyHeaders))
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retry := int(time.Until(d.Reset).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(apitypes.ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the connection address. With trustProxy it prefers the
// first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
				return first
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
			return xr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MemoryLimitStore is a token bucket per key
type MemoryLimitStore struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	every    rate.Limit
	visitors map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimitStore allows bursts of limit, refilled evenly over window
func NewMemoryLimitStore(limit int, window time.Duration) *MemoryLimitStore {
	return &MemoryLimitStore{
		limit:    limit,
		window:   window,
		every:    rate.Every(window / time.Duration(limit)),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (s *MemoryLimitStore) Allow(ctx context.Context, key string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evict(now)

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.every, s.limit)}
		s.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	remaining := int(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Limit:     s.limit,
		Remaining: remaining,
		Reset:     now.Add(time.Duration(float64(time.Second) / float64(s.every))),
	}, nil
}

// evict drops visitors idle for longer than a window
func (s *MemoryLimitStore) evict(now time.Time) {
	for k, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.window {
			delete(s.visitors, k)
		}
	}
}

// RedisLimitStore is a fixed-window counter shared by every API instance
type RedisLimitStore struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimitStore counts up to limit requests per window in Redis
func NewRedisLimitStore(rdb *redis.Client, limit int, window time.Duration) *RedisLimitStore {
	return &RedisLimitStore{rdb: rdb, limit: limit, window: window, prefix: "aria:ratelimit:"}
}

func (s *RedisLimitStore) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := s.prefix + key

	count, err := s.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, redisKey, s.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis expire: %w", err)
		}
	}

	ttl, err := s.rdb.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = s.window
	}

	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(s.limit),
		Limit:     s.limit,
		Remaining: remaining,
		Reset:     time.Now().Add(ttl),
	}, nil
}
