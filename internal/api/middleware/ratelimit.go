package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
)

const (
	msgRateLimited        = "слишком много запросов, попробуйте позже"
	msgRateLimiterFailure = "ограничитель запросов недоступен"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter fixed-window ограничитель, общий для всех экземпляров сервиса
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisLimiter создает ограничитель: не больше limit запросов за window на ключ
func NewRedisLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{rdb: rdb, limit: int64(limit), window: window, prefix: prefix}
}

// Allow увеличивает счётчик окна и сообщает, укладывается ли запрос в лимит
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limiter script: %w", err)
	}
	return count <= l.limit, nil
}

// RateLimitOptions поведение middleware при сбоях и за прокси
type RateLimitOptions struct {
	// FailOpen ошибки хранилища пропускают запрос, иначе 503
	FailOpen bool
	// TrustForwarded ключом служит последний адрес X-Forwarded-For,
	// его добавляет доверенный балансировщик перед сервисом
	TrustForwarded bool
}

// RateLimit ограничивает частоту запросов по IP клиента
func RateLimit(limiter Limiter, opts RateLimitOptions, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, opts.TrustForwarded)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("RateLimit: limiter error for key=%s: %v", key, err)
				if opts.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				handlers.RespondError(w, http.StatusServiceUnavailable, msgRateLimiterFailure)
				return
			}
			if !allowed {
				logger.Warn("RateLimit: limit exceeded for key=%s", key)
				handlers.RespondTooManyRequests(w, msgRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey адрес соединения. Левые значения X-Forwarded-For задает сам клиент,
// поэтому берется только правый хоп и только при trustForwarded.
func clientKey(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) > 0 {
			hops := strings.Split(forwarded[len(forwarded)-1], ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
