package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/AdMarket/internal/pkg/cache"
	"github.com/ManuelReschke/AdMarket/internal/pkg/env"
	"github.com/ManuelReschke/AdMarket/internal/pkg/usercontext"
)

// NewStorage returns the fiber storage backing the rate limiter counters,
// on Redis database 2 of the cache server (cache uses DB 0).
func NewStorage() fiber.Storage {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 2,
		Reset:    false,
	})
}

// New limits each caller to max requests per window. Authenticated callers
// are keyed by user, anonymous ones by IP. storage may be nil for an
// in-memory limiter.
func New(storage fiber.Storage, max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := usercontext.GetUserID(c); id != 0 {
				return "user:" + strconv.FormatUint(uint64(id), 10)
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "too_many_requests",
				"message": "rate limit exceeded, try again later",
			})
		},
	})
}

// FromEnv builds the API limiter from RATE_LIMIT_MAX and RATE_LIMIT_WINDOW.
func FromEnv(storage fiber.Storage) fiber.Handler {
	return New(storage,
		env.GetEnvInt("RATE_LIMIT_MAX", 120),
		env.GetEnvDuration("RATE_LIMIT_WINDOW", time.Minute))
}
