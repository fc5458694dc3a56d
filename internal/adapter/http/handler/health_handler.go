package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool        *pgxpool.Pool
	redisClient *redis.Client
	queueDB     *sql.DB
}

// NewHealthHandler creates a new HealthHandler. queueDB may be nil when the
// offline queue lives in another process.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client, queueDB *sql.DB) *HealthHandler {
	return &HealthHandler{
		pool:        pool,
		redisClient: redisClient,
		queueDB:     queueDB,
	}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness returns 200 if the service is ready to accept traffic. The
// offline queue store is checked but never fails readiness: a reachable
// queue with an unreachable database is exactly the degraded mode the
// queue exists for.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "postgres unhealthy", err.Error())
		return
	}

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "redis unhealthy", err.Error())
		return
	}

	queueStatus := "ok"
	if h.queueDB != nil {
		if err := h.queueDB.PingContext(ctx); err != nil {
			queueStatus = "unhealthy"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"postgres": "ok",
		"redis":    "ok",
		"queue":    queueStatus,
	})
}
