package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/fieldops/fieldops/internal/dto"
)

// LoginRateLimit limits OTP and login attempts per mobile number (or IP when
// the body carries none). It counts in Redis when available and falls back to
// in-process token buckets, also used while Redis is unreachable.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	local := newLocalLimiter(maxPerMin)
	return func(c *fiber.Ctx) error {
		var req struct {
			Mobile string `json:"mobile"`
		}
		_ = c.BodyParser(&req)
		key := strings.TrimSpace(req.Mobile)
		if key == "" {
			key = c.IP()
		}
		key = "rl:login:" + c.Path() + ":" + key

		if cache == nil {
			if !local.allow(key) {
				return tooManyAttempts()
			}
			return c.Next()
		}

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			if !local.allow(key) {
				return tooManyAttempts()
			}
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return tooManyAttempts()
		}
		return c.Next()
	}
}

func tooManyAttempts() error {
	return NewError(http.StatusTooManyRequests, dto.CodeRateLimited, "too many attempts, try again later")
}

type localLimiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*rate.Limiter
}

func newLocalLimiter(perMin int) *localLimiter {
	return &localLimiter{perMin: perMin, limiters: make(map[string]*rate.Limiter)}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
