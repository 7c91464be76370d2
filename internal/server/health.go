package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnreachable  = "unreachable"
)

// storePingTimeout bounds the store ping of the readiness check.
const storePingTimeout = 2 * time.Second

// HealthChecker serves the liveness and readiness endpoints of the HTTP
// transport.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker returns a checker that reports ready until SetReady(false).
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. while the server drains.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the JSON body of the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds the uptime to the readiness checks.
type DetailedHealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthCheck yields healthStatusOK or the failure text for one dependency.
type healthCheck struct {
	name string
	run  func(ctx context.Context) string
}

func (h *HealthChecker) checks() []healthCheck {
	return []healthCheck{
		{name: "ready", run: func(context.Context) string {
			if !h.IsReady() {
				return healthStatusNotReady
			}
			return healthStatusOK
		}},
		{name: "shutdown", run: func(context.Context) string {
			if h.serverContext != nil && h.serverContext.IsShutdown() {
				return healthStatusShuttingDown
			}
			return healthStatusOK
		}},
		{name: "store", run: func(ctx context.Context) string {
			if h.serverContext == nil {
				return healthStatusOK
			}
			ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
			defer cancel()
			if h.serverContext.PingStore(ctx) != nil {
				return healthStatusUnreachable
			}
			return healthStatusOK
		}},
	}
}

// evaluate runs every check and reports whether all passed.
func (h *HealthChecker) evaluate(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string)
	healthy := true
	for _, c := range h.checks() {
		status := c.run(ctx)
		results[c.name] = status
		if status != healthStatusOK {
			healthy = false
		}
	}
	return results, healthy
}

func writeHealth(w http.ResponseWriter, healthy bool, body any) {
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It only reports that the process answers.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, true, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz: the server is marked ready, is not
// shutting down and its store answers a ping.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, healthy := h.evaluate(r.Context())
		resp := HealthResponse{Status: healthStatusOK, Checks: checks}
		if !healthy {
			resp.Status = healthStatusNotReady
		}
		writeHealth(w, healthy, resp)
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, healthy := h.evaluate(r.Context())
		resp := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
			Checks: checks,
		}
		if !healthy {
			resp.Status = healthStatusNotReady
		}
		writeHealth(w, healthy, resp)
	})
}

// RegisterHealthEndpoints mounts the health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
