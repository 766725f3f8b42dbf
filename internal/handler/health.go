package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// HealthHandler exposes liveness and readiness probes. Liveness is
// unconditional; readiness checks every backing store the API depends on.
type HealthHandler struct {
	pool  *pgxpool.Pool
	cache *redis.Client
	amqp  *amqp.Connection
}

func NewHealthHandler(pool *pgxpool.Pool, cache *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{pool: pool, cache: cache, amqp: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	deps := gin.H{"postgres": "ok", "redis": "ok", "rabbitmq": "ok"}
	ready := true

	if err := h.pool.Ping(ctx); err != nil {
		deps["postgres"] = "unavailable"
		ready = false
	}
	if err := h.cache.Ping(ctx).Err(); err != nil {
		deps["redis"] = "unavailable"
		ready = false
	}
	if h.amqp.IsClosed() {
		deps["rabbitmq"] = "unavailable"
		ready = false
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": deps})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": deps})
}
