package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is a dependency probed by the readiness check.
// *database.PostgresDB and *redis.Client satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	components map[string]HealthChecker
	sessions   func() int
}

// NewHealthHandler creates a new HealthHandler. A nil checker marks an
// optional component that is switched off; it never fails readiness.
func NewHealthHandler(components map[string]HealthChecker, sessions func() int) *HealthHandler {
	return &HealthHandler{
		components: components,
		sessions:   sessions,
	}
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Status         string            `json:"status"`
	Timestamp      string            `json:"timestamp"`
	ActiveSessions int               `json:"active_sessions"`
	Components     map[string]string `json:"components"`
}

// Health answers the liveness probe without touching dependencies
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready probes every configured component in parallel
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		states  = make(map[string]string, len(h.components))
		healthy = true
	)
	for name, checker := range h.components {
		if checker == nil {
			states[name] = "not configured"
			continue
		}
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			err := checker.HealthCheck(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				states[name] = "unhealthy: " + err.Error()
				healthy = false
				return
			}
			states[name] = "healthy"
		}(name, checker)
	}
	wg.Wait()

	resp := ReadyResponse{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: states,
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions()
	}

	status := http.StatusOK
	if !healthy {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
