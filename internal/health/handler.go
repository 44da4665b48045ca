package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"registration-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Recorder receives the duration and outcome of every check run.
type Recorder interface {
	RecordDependencyCheck(ctx context.Context, dependency string, duration time.Duration, err error)
}

type Handler struct {
	checks   map[string]Check
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		checks:  map[string]Check{},
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// SetRecorder reports check results to r. Call before serving.
func (h *Handler) SetRecorder(r Recorder) {
	h.recorder = r
}

// AddCheck registers a readiness check.
func (h *Handler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	results, ok := h.Check(r.Context())

	resp := HealthResponse{Status: "ready", Checks: results}
	code := http.StatusOK
	if !ok {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	httputil.RespondWithJSON(w, code, resp)
}

// Check runs every readiness check and reports whether all passed.
func (h *Handler) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ok := true
	for name, check := range h.checks {
		start := time.Now()
		err := check(ctx)
		if h.recorder != nil {
			h.recorder.RecordDependencyCheck(ctx, name, time.Since(start), err)
		}
		if err != nil {
			h.logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
			results[name] = err.Error()
			ok = false
			continue
		}
		results[name] = "ok"
	}
	return results, ok
}
