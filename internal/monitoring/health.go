package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

func (m *Monitor) RegisterHealthCheck(name string, check HealthCheckFunc) {
	m.checksMu.Lock()
	defer m.checksMu.Unlock()
	m.checks[name] = check
}

// RunHealthChecks runs every registered check concurrently, each under its
// own timeout.
func (m *Monitor) RunHealthChecks(ctx context.Context) map[string]HealthCheck {
	m.checksMu.RLock()
	checks := make(map[string]HealthCheckFunc, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.checksMu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]HealthCheck, len(checks))
	)

	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
			defer cancel()

			result := HealthCheck{Name: name, Status: StatusHealthy}
			if err := fn(checkCtx); err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
			}
			result.LastRun = time.Now()

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	return results
}

func allHealthy(checks map[string]HealthCheck) bool {
	for _, check := range checks {
		if check.Status != StatusHealthy {
			return false
		}
	}
	return true
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunHealthChecks(c.Request.Context())

		overallStatus := StatusHealthy
		status := http.StatusOK
		if !allHealthy(checks) {
			overallStatus = StatusUnhealthy
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":    overallStatus,
			"timestamp": time.Now(),
			"checks":    checks,
			"uptime":    m.Uptime().String(),
		})
	}
}

func (m *Monitor) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if allHealthy(m.RunHealthChecks(c.Request.Context())) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ready",
				"timestamp": time.Now(),
			})
			return
		}

		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"timestamp": time.Now(),
		})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    m.Uptime().String(),
		})
	}
}
