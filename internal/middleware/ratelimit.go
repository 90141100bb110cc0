package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/config"
)

const rateLimitWindow = time.Minute

// rateLimitExempt skips liveness endpoints so load balancer probes are
// never throttled.
func rateLimitExempt(path string) bool {
	return path == "/" || path == "/healthz"
}

// RateLimit returns a fixed-window per-IP limiter backed by Redis.  With no
// Redis client, or when disabled, it is a pass-through.  A Redis error also
// passes the request through: the limiter protects against abuse, it is not
// allowed to take the API down with it.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	windowSecs := int64(rateLimitWindow / time.Second)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rateLimitExempt(c.Request().URL.Path) {
				return next(c)
			}
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}

			now := time.Now()
			slot := now.Unix() / windowSecs
			key := cfg.Prefix + ":ip:" + ip + ":" + strconv.FormatInt(slot, 10)

			ctx := c.Request().Context()
			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Warn("rate limit redis error", zap.Error(err))
				return next(c)
			}
			if count == 1 {
				_ = rdb.Expire(ctx, key, rateLimitWindow).Err()
			}

			reset := (slot + 1) * windowSecs
			remaining := int64(cfg.PerMinute) - count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.PerMinute))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

			if count > int64(cfg.PerMinute) {
				retry := reset - now.Unix()
				if retry < 0 {
					retry = 0
				}
				h.Set("Retry-After", strconv.FormatInt(retry, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
