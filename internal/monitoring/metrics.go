package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	RequestCount   int64            `json:"request_count"`
	AvgDurationMs  float64          `json:"avg_request_duration_ms"`
	ActiveRequests int64            `json:"active_requests"`
	ErrorCount     int64            `json:"error_count"`
	StatusCodes    map[string]int64 `json:"status_codes"`
	Endpoints      map[string]int64 `json:"endpoint_calls"`
	StartTime      time.Time        `json:"start_time"`
	LastRequest    time.Time        `json:"last_request"`
}

// StatsFunc contributes a named section to the /metrics response.
type StatsFunc func(ctx context.Context) interface{}

// Monitor collects request metrics and runs the registered health checks.
type Monitor struct {
	mu            sync.RWMutex
	metrics       Metrics
	totalDuration time.Duration

	checksMu sync.RWMutex
	checks   map[string]HealthCheckFunc
	stats    map[string]StatsFunc

	checkTimeout time.Duration
}

func NewMonitor() *Monitor {
	return &Monitor{
		metrics: Metrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
			StartTime:   time.Now(),
		},
		checks:       make(map[string]HealthCheckFunc),
		stats:        make(map[string]StatsFunc),
		checkTimeout: 5 * time.Second,
	}
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.metrics.ActiveRequests++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		endpoint := c.Request.Method + " " + route

		m.mu.Lock()
		defer m.mu.Unlock()

		m.metrics.RequestCount++
		m.metrics.ActiveRequests--
		m.totalDuration += duration
		m.metrics.AvgDurationMs = float64(m.totalDuration) / float64(time.Millisecond) / float64(m.metrics.RequestCount)
		m.metrics.LastRequest = time.Now()

		if statusCode >= 400 {
			m.metrics.ErrorCount++
		}
		m.metrics.StatusCodes[http.StatusText(statusCode)]++
		m.metrics.Endpoints[endpoint]++
	}
}

func (m *Monitor) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := m.metrics
	snapshot.StatusCodes = make(map[string]int64, len(m.metrics.StatusCodes))
	snapshot.Endpoints = make(map[string]int64, len(m.metrics.Endpoints))
	for k, v := range m.metrics.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range m.metrics.Endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.metrics.StartTime)
}

func (m *Monitor) RegisterStats(name string, fn StatsFunc) {
	m.checksMu.Lock()
	defer m.checksMu.Unlock()
	m.stats[name] = fn
}

type SystemMetrics struct {
	Uptime         time.Duration `json:"uptime"`
	MemoryUsage    MemoryStats   `json:"memory"`
	GoroutineCount int           `json:"goroutine_count"`
	CPUCount       int           `json:"cpu_count"`
	GoVersion      string        `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	LastGC       string `json:"last_gc"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (m *Monitor) SystemMetrics() SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return SystemMetrics{
		Uptime: m.Uptime(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(ms.Alloc),
			TotalAlloc:   bToMb(ms.TotalAlloc),
			Sys:          bToMb(ms.Sys),
			NumGC:        ms.NumGC,
			NextGC:       bToMb(ms.NextGC),
			LastGC:       time.Unix(0, int64(ms.LastGC)).Format(time.RFC3339),
			GCPauseTotal: time.Duration(ms.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"application": m.Snapshot(),
			"system":      m.SystemMetrics(),
			"timestamp":   time.Now(),
		}

		m.checksMu.RLock()
		for name, fn := range m.stats {
			response[name] = fn(c.Request.Context())
		}
		m.checksMu.RUnlock()

		c.JSON(http.StatusOK, response)
	}
}
