package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/campuscircle/campuscircle/internal/pkg/cache"
	"github.com/campuscircle/campuscircle/internal/pkg/env"
)

// Database 2 keeps limiter counters apart from the job queue (DB 0).
const storageDatabase = 2

// NewStorage creates a Redis-backed fiber.Storage on the same server as the
// shared cache client.
func NewStorage() fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient := cache.GetClient(); cacheClient != nil {
		if h, p, err := net.SplitHostPort(cacheClient.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Prefer password from the underlying client if present
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: storageDatabase,
		Reset:    false,
	})
}

// Config describes a fixed-window limit.
type Config struct {
	Max        int
	Expiration time.Duration
	KeyFunc    func(c *fiber.Ctx) string
	Storage    fiber.Storage
}

// WebhookConfig reads WEBHOOK_RATE_LIMIT (requests per minute, default 120).
func WebhookConfig(keyFunc func(c *fiber.Ctx) string, storage fiber.Storage) Config {
	return Config{
		Max:        env.GetEnvInt("WEBHOOK_RATE_LIMIT", 120),
		Expiration: time.Minute,
		KeyFunc:    keyFunc,
		Storage:    storage,
	}
}

// New builds the limiter middleware. A nil Storage keeps counters in memory.
func New(cfg Config) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:          cfg.Max,
		Expiration:   cfg.Expiration,
		KeyGenerator: cfg.KeyFunc,
		Storage:      cfg.Storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
	})
}
