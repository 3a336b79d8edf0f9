package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheckFunc probes one dependency
type HealthCheckFunc func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	checks  map[string]HealthCheckFunc
	version string
}

// NewHealthChecker creates a new health checker. Dependencies that are not
// configured are reported as such in extended mode.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheckFunc),
		version: version,
	}
}

// Register adds a named dependency check. A nil check marks the dependency as not configured.
func (h *HealthChecker) Register(name string, check HealthCheckFunc) {
	h.checks[name] = check
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		response.Checks = h.runChecks(r.Context())
		for _, result := range response.Checks {
			if result != "healthy" && result != "not configured" {
				response.Status = "unhealthy"
				statusCode = http.StatusServiceUnavailable
				break
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) runChecks(ctx context.Context) map[string]string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	for _, name := range names {
		check := h.checks[name]
		if check == nil {
			results[name] = "not configured"
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			results[name] = "unhealthy: " + sanitizeErrorMessage(err.Error())
			continue
		}
		results[name] = "healthy"
	}
	return results
}

// Version handles the /version endpoint
func (h *HealthChecker) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": h.version})
}
