// Package health reports whether the service's backing components are
// reachable.
package health

import (
	"net/http"

	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"go.uber.org/zap"
)

type (
	// Healther is implemented by every component taking part in health
	// checks. IsHealthy must return quickly.
	Healther interface {
		IsHealthy() bool
	}

	// HealtherFunc adapts a function to Healther
	HealtherFunc func() bool

	check struct {
		name     string
		healther Healther
	}

	// HealthChecker aggregates named components and reports the overall
	// status over HTTP.
	HealthChecker struct {
		logger *logger.Logger
		checks []check
	}
)

func (f HealtherFunc) IsHealthy() bool {
	return f()
}

func NewHealthChecker(logger *logger.Logger) *HealthChecker {
	return &HealthChecker{
		logger: logger,
	}
}

// Register adds a component under name. Components are checked in
// registration order.
func (h *HealthChecker) Register(name string, healther Healther) *HealthChecker {
	h.checks = append(h.checks, check{name: name, healther: healther})
	return h
}

// Failing returns the names of the unhealthy components. Every component is
// checked.
func (h *HealthChecker) Failing() []string {
	var failing []string

	for _, c := range h.checks {
		if !c.healther.IsHealthy() {
			failing = append(failing, c.name)
			h.logger.Error("health check failed", zap.String("component", c.name))
		}
	}

	return failing
}

// HealthCheck responds 200 "OK" when every component is healthy and
// 503 "Not OK" otherwise.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if len(h.Failing()) == 0 {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("Not OK"))
}
