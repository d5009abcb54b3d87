package api

import (
	"context"
	"net/http"
	"time"

	"office-action-orchestrator/internal/domain"
	"office-action-orchestrator/internal/tracker"
)

// DraftRunner assembles a response draft and waits for the result.
type DraftRunner interface {
	RunDraftAssembly(ctx context.Context, sessionID, applicationID string) (domain.DraftRecord, error)
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	tracker        *tracker.Service
	drafts         DraftRunner
	deps           map[string]Pinger
	maxUploadBytes int64
	metrics        bool
}

type Option func(*Handler)

func WithReadinessCheck(name string, p Pinger) Option {
	return func(h *Handler) { h.deps[name] = p }
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithMetrics serves /metrics and records request metrics.
func WithMetrics(enabled bool) Option {
	return func(h *Handler) { h.metrics = enabled }
}

func NewHandler(svc *tracker.Service, drafts DraftRunner, opts ...Option) *Handler {
	h := &Handler{
		tracker:        svc,
		drafts:         drafts,
		deps:           make(map[string]Pinger),
		maxUploadBytes: domain.MaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "dependency": name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
