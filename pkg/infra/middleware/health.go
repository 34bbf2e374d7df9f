package middleware

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the health status.
type HealthStatus string

const (
	HealthStatusUp   HealthStatus = "UP"
	HealthStatusDown HealthStatus = "DOWN"
	// HealthStatusDegraded 服务可用但某个非关键依赖异常。
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
	Version string                 `json:"version,omitempty"`
}

// CheckResult represents an individual health check result.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthChecker performs one dependency check.
type HealthChecker func(ctx context.Context) error

type namedChecker struct {
	check    HealthChecker
	critical bool
}

// HealthManager manages health checks.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]namedChecker
	version  string
	timeout  time.Duration
}

// NewHealthManager creates a health manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]namedChecker),
		version:  version,
		timeout:  3 * time.Second,
	}
}

// RegisterChecker registers a health checker. A failing critical checker
// reports DOWN; a failing non-critical one reports DEGRADED.
func (h *HealthManager) RegisterChecker(name string, critical bool, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = namedChecker{check: checker, critical: critical}
}

// Check performs all health checks.
func (h *HealthManager) Check(ctx context.Context) HealthResponse {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	checkers := make(map[string]namedChecker, len(h.checkers))
	for name, c := range h.checkers {
		names = append(names, name)
		checkers[name] = c
	}
	h.mu.RUnlock()
	sort.Strings(names)

	resp := HealthResponse{Status: HealthStatusUp, Version: h.version}
	if len(names) == 0 {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp.Checks = make(map[string]CheckResult, len(names))
	for _, name := range names {
		c := checkers[name]
		if err := c.check(ctx); err != nil {
			resp.Checks[name] = CheckResult{Status: HealthStatusDown, Message: err.Error()}
			if c.critical {
				resp.Status = HealthStatusDown
			} else if resp.Status == HealthStatusUp {
				resp.Status = HealthStatusDegraded
			}
			continue
		}
		resp.Checks[name] = CheckResult{Status: HealthStatusUp}
	}
	return resp
}

// Handler serves the health report; DOWN maps to 503.
func (h *HealthManager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.Check(c.Request.Context())
		status := http.StatusOK
		if resp.Status == HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}
