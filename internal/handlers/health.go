package handlers

import (
	"net/http"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/platform/httpx"
	"github.com/bazaar-mobile/api/internal/services"
)

// HealthHandlers serve liveness and readiness probes.
type HealthHandlers struct {
	system  services.SystemService
	build   services.BuildInfo
	started time.Time
	now     func() time.Time
}

// HealthOption customises health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService wires the readiness reporter behind /readyz.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthBuildInfo sets the version metadata returned by /healthz.
func WithHealthBuildInfo(build services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthClock overrides the clock, primarily for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.now = clock
		}
	}
}

// NewHealthHandlers constructs health handlers. The uptime origin is the construction time.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.started = h.now()
	return h
}

type healthPayload struct {
	Status      string                  `json:"status"`
	Version     string                  `json:"version,omitempty"`
	Environment string                  `json:"environment,omitempty"`
	Uptime      string                  `json:"uptime"`
	Timestamp   string                  `json:"timestamp"`
	Probes      map[string]probePayload `json:"probes,omitempty"`
}

type probePayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Healthz reports liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSONResponse(w, http.StatusOK, healthPayload{
		Status:      string(domain.ProbeStatusOK),
		Version:     h.build.Version,
		Environment: h.build.Environment,
		Uptime:      now.Sub(h.started).Truncate(time.Second).String(),
		Timestamp:   formatTime(now),
	})
}

// Readyz runs dependency probes. Degraded dependencies still answer 200; errors answer 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.Readiness(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("readiness_unavailable", err.Error(), http.StatusServiceUnavailable))
		return
	}

	probes := make(map[string]probePayload, len(report.Probes))
	for name, probe := range report.Probes {
		probes[name] = probePayload{
			Status:    string(probe.Status),
			Detail:    probe.Detail,
			LatencyMS: probe.Latency.Milliseconds(),
		}
	}

	status := http.StatusOK
	if report.Status == domain.ProbeStatusError {
		status = http.StatusServiceUnavailable
	}
	now := h.now()
	writeJSONResponse(w, status, healthPayload{
		Status:      string(report.Status),
		Version:     report.Version,
		Environment: report.Environment,
		Uptime:      now.Sub(h.started).Truncate(time.Second).String(),
		Timestamp:   formatTime(report.GeneratedAt),
		Probes:      probes,
	})
}
