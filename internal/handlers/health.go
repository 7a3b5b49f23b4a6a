package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type CacheHealth interface {
	HealthCheck(ctx context.Context) error
	GetStats() *redis.PoolStats
}

type HealthHandler struct {
	db    Pinger
	cache CacheHealth
}

func NewHealthHandler(db Pinger, cache CacheHealth) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// HealthCheck reports 503 when the database or Redis is unreachable.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	database := "connected"
	if err := h.db.Ping(ctx); err != nil {
		database = "unavailable"
		status = fiber.StatusServiceUnavailable
	}
	cache := "connected"
	if err := h.cache.HealthCheck(ctx); err != nil {
		cache = "unavailable"
		status = fiber.StatusServiceUnavailable
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  state,
		"version": "1.0.0",
		"services": fiber.Map{
			"database": database,
			"redis":    cache,
		},
	})
}

func (h *HealthHandler) CacheStats(c *fiber.Ctx) error {
	poolStats := h.cache.GetStats()

	return c.JSON(fiber.Map{
		"pool_stats": fiber.Map{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"timeouts":    poolStats.Timeouts,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		},
	})
}
