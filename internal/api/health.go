package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cozy-blogs/carajillo/internal/pkg/httputil"
)

// HealthStatus is the overall health of the service.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthCheck reports liveness plus contact store reachability.
// Always returns 200; the status field in the body conveys health.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]ComponentCheck{
		"contact_store": h.checkStore(r.Context()),
	}

	// The contact store is the only hard dependency. Everything stops
	// without it, so its outage makes the whole service unhealthy.
	overall := "healthy"
	if c := checks["contact_store"]; c.Status == "down" && c.Message != "not configured" {
		overall = "unhealthy"
	}

	httputil.OK(w, HealthStatus{
		Status: overall,
		Checks: checks,
	})
}

// checkStore pings the contact store with a short timeout.
func (h *Handlers) checkStore(ctx context.Context) ComponentCheck {
	if h.store == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.HealthCheck(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return ComponentCheck{
		Status:  "up",
		Latency: latency.String(),
		Message: "connected",
	}
}
