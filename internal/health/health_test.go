package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/probe"
)

func TestProbeCheckerNoProbeYet(t *testing.T) {
	checker := NewProbeChecker()

	health := checker.HealthCheck(context.Background())

	assert.Equal(t, StatusDegraded, health.Status)
	assert.Equal(t, "database", health.Name)
	assert.Contains(t, health.Details.Warning, "no probe")
}

func TestProbeCheckerSuccess(t *testing.T) {
	checker := NewProbeChecker()
	checker.Update(&probe.Result{
		ConnectionSuccessful: true,
		HostReachable:        true,
		Timings:              &probe.Timings{ConnectTime: 0.05},
		Diagnostics: &probe.Diagnostics{
			Version:           "PostgreSQL 16.2",
			ActiveConnections: 12,
		},
	})

	health := checker.HealthCheck(context.Background())

	assert.Equal(t, StatusUp, health.Status)
	assert.Empty(t, health.Error)
	assert.Equal(t, 12, health.Details.ActiveConnections)
	assert.Equal(t, "PostgreSQL 16.2", health.Details.ServerVersion)
	assert.Equal(t, 0.05, health.Details.ConnectionTime)
	assert.NotEmpty(t, health.Details.LastProbe)
}

func TestProbeCheckerFailure(t *testing.T) {
	checker := NewProbeChecker()
	checker.Update(&probe.Result{
		HostReachable: false,
		ErrorMessage:  "host db:5432 is not reachable",
	})

	health := checker.HealthCheck(context.Background())

	assert.Equal(t, StatusDown, health.Status)
	assert.Contains(t, health.Error, "not reachable")
}

func TestProbeCheckerIncompleteDiagnostics(t *testing.T) {
	checker := NewProbeChecker()
	checker.Update(&probe.Result{
		ConnectionSuccessful: true,
		HostReachable:        true,
		Diagnostics:          &probe.Diagnostics{Err: "permission denied for pg_stat_activity"},
	})

	health := checker.HealthCheck(context.Background())

	assert.Equal(t, StatusDegraded, health.Status)
	assert.Contains(t, health.Details.Warning, "diagnostics incomplete")
}

func TestHealthHandler(t *testing.T) {
	service := NewService()
	checker := NewProbeChecker()
	checker.Update(&probe.Result{ConnectionSuccessful: true, HostReachable: true})
	service.RegisterChecker("database", checker)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	service.Handler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusUp, status.Status)
	assert.Contains(t, status.Components, "database")
	assert.NotEmpty(t, status.Uptime)
}

func TestHealthHandlerDown(t *testing.T) {
	service := NewService()
	checker := NewProbeChecker()
	checker.Update(&probe.Result{ErrorMessage: "connection refused"})
	service.RegisterChecker("database", checker)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	service.Handler()(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessHandler(t *testing.T) {
	service := NewService()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	service.LivenessHandler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "alive", response.Status)
}

func TestReadinessHandler(t *testing.T) {
	service := NewService()
	checker := NewProbeChecker()
	service.RegisterChecker("database", checker)

	// No probe yet: degraded, not ready
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	service.ReadinessHandler()(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Ready)
	assert.Equal(t, StatusDegraded, response.Status)

	// After a successful probe: ready
	checker.Update(&probe.Result{ConnectionSuccessful: true, HostReachable: true})
	rec = httptest.NewRecorder()
	service.ReadinessHandler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Ready)
}
