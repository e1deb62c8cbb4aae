package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/eshoplite-backend/pkg/redis"
)

// RateLimitPolicy is a fixed window with a per-client request ceiling.
type RateLimitPolicy struct {
	name    string
	window  time.Duration
	ipLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit}
}

type limiter struct {
	policy RateLimitPolicy
	store  pkgredis.Counter
	logg   *logger.Logger
}

// RateLimit counts requests per client IP in the policy window and answers
// 429 with Retry-After once the ceiling is passed. A zero policy or a nil
// counter disables it.
func RateLimit(policy RateLimitPolicy, store pkgredis.Counter, logg *logger.Logger) func(http.Handler) http.Handler {
	if policy.window <= 0 || policy.ipLimit <= 0 || store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	l := &limiter{policy: policy, store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// allow writes the rejection itself and reports whether the request may go on.
func (l *limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	ip := clientIP(r)
	if ip == "" {
		return true
	}
	hits, err := l.store.Hit(ctx, "ip:"+l.policy.name+":"+ip, l.policy.window)
	if err != nil {
		responses.WriteError(ctx, l.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if hits <= int64(l.policy.ipLimit) {
		return true
	}

	retry := int(l.policy.window / time.Second)
	if l.logg != nil {
		l.logg.Warn(l.logg.WithFields(ctx, map[string]any{
			"policy":         l.policy.name,
			"ip":             ip,
			"attempts":       hits,
			"limit":          l.policy.ipLimit,
			"window_seconds": retry,
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
