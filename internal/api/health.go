package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse is the body of GET /health.
type HealthCheckResponse struct {
	VersionInfo
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
	LiveSessions  int    `json:"live_sessions"`
	Subscribers   int    `json:"subscribers"`
}

const pingTimeout = 2 * time.Second

// runChecks returns every check and the worst status among them.
func (s *Server) runChecks(ctx context.Context) (map[string]HealthCheck, HealthStatus) {
	checks := map[string]HealthCheck{
		"database": s.checkDatabase(ctx),
		"sessions": s.checkSessions(),
	}
	overall := HealthStatusHealthy
	for _, c := range checks {
		switch {
		case c.Status == HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case c.Status == HealthStatusDegraded && overall == HealthStatusHealthy:
			overall = HealthStatusDegraded
		}
	}
	return checks, overall
}

// handleHealthCheck answers 503 only when a check is unhealthy.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks, overall := s.runChecks(r.Context())

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, HealthCheckResponse{
		VersionInfo: GetVersionInfo(),
		Status:      overall,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(s.startTime).String(),
		Checks:      checks,
		System:      s.systemInfo(),
		RequestID:   middleware.GetReqID(r.Context()),
	})
}

// handleReadiness succeeds once storage answers.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	db := s.checkDatabase(r.Context())
	ready := db.Status == HealthStatusHealthy

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]interface{}{
		"ready":      ready,
		"message":    db.Message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

func (s *Server) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Status: HealthStatusHealthy, Message: "database connection healthy"}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("database_ping_failed")
		check.Status = HealthStatusUnhealthy
		check.Message = "database unreachable"
	}

	check.LastChecked = time.Now().UTC().Format(time.RFC3339)
	check.Duration = time.Since(start).String()
	return check
}

// checkSessions reports the live table. It never fails the probe.
func (s *Server) checkSessions() HealthCheck {
	return HealthCheck{
		Status:      HealthStatusHealthy,
		Message:     fmt.Sprintf("%d live sessions, %d event subscribers", s.manager.Len(), s.events.Subscribers()),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *Server) systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAlloc:   m.Alloc,
		GCCycles:      m.NumGC,
		LiveSessions:  s.manager.Len(),
		Subscribers:   s.events.Subscribers(),
	}
}
