package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(m *Monitor) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/health", m.HealthHandler())
	router.GET("/health/ready", m.ReadinessHandler())
	router.GET("/health/live", m.LivenessHandler())
	router.GET("/metrics", m.MetricsHandler())
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMonitor_Middleware(t *testing.T) {
	m := NewMonitor()
	router := newTestRouter(m)

	get(router, "/ok")
	get(router, "/ok")
	get(router, "/fail")
	get(router, "/nowhere")

	snapshot := m.Snapshot()
	assert.Equal(t, int64(4), snapshot.RequestCount)
	assert.Equal(t, int64(2), snapshot.ErrorCount)
	assert.Equal(t, int64(0), snapshot.ActiveRequests)
	assert.Equal(t, int64(2), snapshot.StatusCodes["OK"])
	assert.Equal(t, int64(2), snapshot.StatusCodes["Not Found"])
	assert.Equal(t, int64(2), snapshot.Endpoints["GET /ok"])
	assert.Equal(t, int64(1), snapshot.Endpoints["GET unmatched"])
}

func TestMonitor_AverageDurationInMilliseconds(t *testing.T) {
	m := NewMonitor()
	router := newTestRouter(m)
	router.GET("/slow", func(c *gin.Context) {
		time.Sleep(20 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	get(router, "/slow")

	snapshot := m.Snapshot()
	assert.GreaterOrEqual(t, snapshot.AvgDurationMs, 20.0)
	assert.Less(t, snapshot.AvgDurationMs, 1000.0)

	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Less(t, decoded["avg_request_duration_ms"].(float64), 1000.0)
}

func TestMonitor_SnapshotIsACopy(t *testing.T) {
	m := NewMonitor()
	get(newTestRouter(m), "/ok")

	snapshot := m.Snapshot()
	snapshot.Endpoints["GET /ok"] = 100

	assert.Equal(t, int64(1), m.Snapshot().Endpoints["GET /ok"])
}

func TestMonitor_HealthAllHealthy(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", func(ctx context.Context) error { return nil })
	router := newTestRouter(m)

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusHealthy, body["status"])

	assert.Equal(t, http.StatusOK, get(router, "/health/ready").Code)
}

func TestMonitor_HealthUnhealthy(t *testing.T) {
	m := NewMonitor()
	m.RegisterHealthCheck("database", func(ctx context.Context) error { return nil })
	m.RegisterHealthCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") })
	router := newTestRouter(m)

	w := get(router, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string                 `json:"status"`
		Checks map[string]HealthCheck `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	assert.Equal(t, StatusHealthy, body.Checks["database"].Status)
	assert.Equal(t, "connection refused", body.Checks["redis"].Message)

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health/ready").Code)
	assert.Equal(t, http.StatusOK, get(router, "/health/live").Code)
}

func TestMonitor_ChecksRunOnEveryRequest(t *testing.T) {
	m := NewMonitor()
	healthy := true
	m.RegisterHealthCheck("flaky", func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})
	router := newTestRouter(m)

	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/health").Code)
}

func TestMonitor_MetricsHandler(t *testing.T) {
	m := NewMonitor()
	m.RegisterStats("queue", func(ctx context.Context) interface{} {
		return map[string]int{"reminders": 3}
	})
	router := newTestRouter(m)
	get(router, "/ok")

	w := get(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "application")
	assert.Contains(t, body, "system")
	assert.JSONEq(t, `{"reminders":3}`, string(body["queue"]))
}
