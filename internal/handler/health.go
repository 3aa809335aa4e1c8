package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const readyTimeout = 2 * time.Second

// Probe reports whether one dependency is usable.
type Probe func(ctx context.Context) error

type HealthHandler struct {
	names  []string
	probes map[string]Probe
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	h := &HealthHandler{probes: make(map[string]Probe)}
	h.Register("postgres", dbPool.Ping)
	h.Register("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	h.Register("rabbitmq", func(context.Context) error {
		if amqpConn.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	})
	return h
}

// Register adds or replaces a named readiness probe.
func (h *HealthHandler) Register(name string, p Probe) {
	if h.probes == nil {
		h.probes = make(map[string]Probe)
	}
	if _, ok := h.probes[name]; !ok {
		h.names = append(h.names, name)
	}
	h.probes[name] = p
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	body := gin.H{"status": "ok"}
	code := http.StatusOK
	for _, name := range h.names {
		if err := h.probes[name](ctx); err != nil {
			body[name] = "unavailable"
			body["status"] = "error"
			code = http.StatusServiceUnavailable
			continue
		}
		body[name] = "connected"
	}
	c.JSON(code, body)
}
