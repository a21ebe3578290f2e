// Package health serves liveness, readiness and status endpoints for the
// verification service and its optional backing stores.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"landtrust/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// CheckFunc reports a dependency's health; nil means healthy.
type CheckFunc func(ctx context.Context) error

// InfoFunc contributes a section to the status response.
type InfoFunc func() any

// Handler serves the health endpoints.
type Handler struct {
	startTime   time.Time
	environment string
	now         func() time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
	info   map[string]InfoFunc
}

func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		now:         time.Now,
		checks:      make(map[string]CheckFunc),
		info:        make(map[string]InfoFunc),
	}
}

// RegisterCheck adds a named readiness check. A failing check turns
// /health/ready into 503.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RegisterInfo adds a named section to /health. Info never affects readiness.
func (h *Handler) RegisterInfo(name string, info InfoFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info[name] = info
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always answers 200 while the process serves requests.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// HandleReadiness runs every registered check concurrently and answers 503
// if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]CheckResult, len(checks))
		g       errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			start := time.Now()
			err := check(ctx)
			res := CheckResult{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	response := ReadinessResponse{Status: "ready", Checks: results}
	for _, res := range results {
		if res.Status != "up" {
			response.Status = "not_ready"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

type StatusResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Environment   string         `json:"environment"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Timestamp     string         `json:"timestamp"`
	Info          map[string]any `json:"info,omitempty"`
}

// HandleStatus reports version, environment, uptime and registered info.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	info := maps.Clone(h.info)
	h.mu.RUnlock()

	resp := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(h.now().Sub(h.startTime).Seconds()),
		Timestamp:     h.now().UTC().Format(time.RFC3339),
	}
	if len(info) > 0 {
		resp.Info = make(map[string]any, len(info))
		for name, fn := range info {
			resp.Info[name] = fn()
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
