package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/credence/internal/application/dto"
	"github.com/turtacn/credence/pkg/logger"
)

const healthCheckTimeout = 3 * time.Second

// HealthChecker reports the health of one dependency.
// *postgres.DBConnection and *redis.RedisConnection implement it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (map[string]interface{}, error)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checkers map[string]HealthChecker
	log      logger.Logger
}

// NewHealthHandler creates a new HealthHandler. Nil checkers are skipped.
func NewHealthHandler(checkers map[string]HealthChecker, log logger.Logger) *HealthHandler {
	active := make(map[string]HealthChecker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandler{checkers: active, log: log.WithComponent("HealthHandler")}
}

// LivenessCheck reports that the process is serving.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "alive"})
}

// ReadinessCheck checks every dependency in parallel and answers 503 when
// any of them is down. Error details stay in the logs.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		components = make(map[string]interface{}, len(h.checkers))
		healthy    = true
	)

	g, gctx := errgroup.WithContext(ctx)
	for name, checker := range h.checkers {
		g.Go(func() error {
			details, err := checker.HealthCheck(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.log.Warn(ctx, "Dependency unhealthy", logger.String("component", name), logger.Error(err))
				components[name] = map[string]interface{}{"status": "down"}
				healthy = false
				return nil
			}
			if details == nil {
				details = map[string]interface{}{}
			}
			details["status"] = "up"
			components[name] = details
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable", Components: components})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ready", Components: components})
}
