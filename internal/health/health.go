// Package health exposes the serve-mode health endpoints, reporting the
// outcome of the most recent database probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/EnesKeremAYDIN/postgresql-connection-tester/internal/probe"
)

// Status represents the health status of a component
type Status string

const (
	StatusUp       Status = "UP"
	StatusDown     Status = "DOWN"
	StatusDegraded Status = "DEGRADED"
)

// Details contains specific health check details
type Details struct {
	LastProbe         string  `json:"last_probe,omitempty"`
	ConnectionTime    float64 `json:"connection_time_seconds,omitempty"`
	ActiveConnections int     `json:"active_connections,omitempty"`
	ServerVersion     string  `json:"server_version,omitempty"`
	Warning           string  `json:"warning,omitempty"`
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Details   *Details  `json:"details,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckTime time.Time `json:"check_time"`
}

// HealthStatus represents the overall system health
type HealthStatus struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// LivenessResponse represents the liveness check response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool   `json:"ready"`
	Status    Status `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Checker interface for components that can report health
type Checker interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// Service manages health checks for serve mode
type Service struct {
	startTime time.Time
	checkers  map[string]Checker
	mu        sync.RWMutex
}

// NewService creates a new health check service
func NewService() *Service {
	return &Service{
		startTime: time.Now(),
		checkers:  make(map[string]Checker),
	}
}

// RegisterChecker registers a health checker under a component name
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// GetHealth returns the current health status
func (s *Service) GetHealth(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Timestamp:  time.Now(),
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth),
	}

	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for k, v := range s.checkers {
		checkers[k] = v
	}
	s.mu.RUnlock()

	overallStatus := StatusUp
	for name, checker := range checkers {
		health := checker.HealthCheck(ctx)
		status.Components[name] = health

		switch health.Status {
		case StatusDown:
			overallStatus = StatusDown
		case StatusDegraded:
			if overallStatus == StatusUp {
				overallStatus = StatusDegraded
			}
		}
	}

	status.Status = overallStatus
	return status
}

// Handler returns an HTTP handler for health checks
func (s *Service) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := s.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch health.Status {
		case StatusUp, StatusDegraded:
			w.WriteHeader(http.StatusOK)
		case StatusDown:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(health); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// LivenessHandler returns a simple liveness check handler
func (s *Service) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := LivenessResponse{
			Status:    "alive",
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ReadinessHandler returns a readiness check handler
func (s *Service) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := s.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")

		ready := health.Status == StatusUp
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		response := ReadinessResponse{
			Ready:     ready,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		if !ready {
			response.Status = health.Status
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ProbeChecker reports health based on the most recent probe result
type ProbeChecker struct {
	mu       sync.RWMutex
	last     *probe.Result
	lastTime time.Time
}

// NewProbeChecker creates a checker with no recorded probe yet
func NewProbeChecker() *ProbeChecker {
	return &ProbeChecker{}
}

// Update records a finished probe result
func (p *ProbeChecker) Update(result *probe.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = result
	p.lastTime = time.Now()
}

// HealthCheck reports database health from the last recorded probe
func (p *ProbeChecker) HealthCheck(ctx context.Context) ComponentHealth {
	p.mu.RLock()
	last := p.last
	lastTime := p.lastTime
	p.mu.RUnlock()

	health := ComponentHealth{
		Name:      "database",
		CheckTime: time.Now(),
		Details:   &Details{},
	}

	if last == nil {
		health.Status = StatusDegraded
		health.Details.Warning = "no probe completed yet"
		return health
	}

	health.Details.LastProbe = lastTime.Format(time.RFC3339)

	if !last.ConnectionSuccessful {
		health.Status = StatusDown
		health.Error = last.ErrorMessage
		return health
	}

	health.Status = StatusUp
	if last.Timings != nil {
		health.Details.ConnectionTime = last.Timings.ConnectTime
	}
	if d := last.Diagnostics; d != nil {
		health.Details.ActiveConnections = d.ActiveConnections
		health.Details.ServerVersion = d.Version
		if d.Err != "" {
			health.Status = StatusDegraded
			health.Details.Warning = "diagnostics incomplete: " + d.Err
		}
	}
	return health
}
