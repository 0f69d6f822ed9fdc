// Package health reports whether the service's backing components are up.
package health

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/Koyo-os/docusurvey/pkg/logger"
	"go.uber.org/zap"
)

type (
	// Healther is implemented by every component that can report its state.
	// IsHealthy must return quickly.
	Healther interface {
		IsHealthy() bool
	}

	HealthChecker struct {
		logger    *logger.Logger
		healthers map[string]Healther
	}

	Report struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
)

func NewHealthChecker(logger *logger.Logger) *HealthChecker {
	return &HealthChecker{
		logger:    logger,
		healthers: make(map[string]Healther),
	}
}

// Register adds a named component. A nil healther is ignored so optional
// components can be passed unconditionally.
func (h *HealthChecker) Register(name string, healther Healther) *HealthChecker {
	if healther != nil {
		h.healthers[name] = healther
	}
	return h
}

// Check asks every component and returns the aggregated report.
func (h *HealthChecker) Check() Report {
	names := make([]string, 0, len(h.healthers))
	for name := range h.healthers {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{Status: "ok", Components: make(map[string]bool, len(names))}

	for _, name := range names {
		ok := h.healthers[name].IsHealthy()
		report.Components[name] = ok

		if !ok {
			report.Status = "unavailable"
			h.logger.Error("health check failed", zap.String("component", name))
		}
	}

	return report
}

// HealthCheck answers 200 when every component is healthy and 503 otherwise.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.Check()

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}

	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Error("error encode health report", zap.Error(err))
	}
}

// Server builds a dedicated health server listening on addr.
func (h *HealthChecker) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)

	return &http.Server{Addr: addr, Handler: mux}
}
