package registration

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"registration-service/internal/apperror"
	"registration-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

type Handler struct {
	service        Service
	logger         *slog.Logger
	exposeInternal bool
}

func NewHandler(service Service, logger *slog.Logger, exposeInternal bool) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		exposeInternal: exposeInternal,
	}
}

// RegisterRoutes mounts the registration endpoints. Creating is public;
// adminOnly guards reads and deletes and createLimit throttles submissions.
// Either may be nil.
func (h *Handler) RegisterRoutes(router chi.Router, adminOnly, createLimit func(http.Handler) http.Handler) {
	router.Route("/registrations", func(r chi.Router) {
		r.With(optional(createLimit)).Post("/", h.Create)

		r.Group(func(r chi.Router) {
			r.Use(optional(adminOnly))
			r.Get("/", h.List)
			r.Get("/stats", h.Stats)
			r.Get("/{id}", h.Get)
			r.Delete("/{id}", h.Delete)
		})
	})
}

type listResponse struct {
	Success bool `json:"success"`
	ListResult
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.InfoContext(r.Context(), "invalid registration body", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reg, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithData(w, http.StatusCreated, reg)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{
		Page:     atoiOrZero(q.Get("page")),
		PageSize: atoiOrZero(q.Get("pageSize")),
		Search:   q.Get("search"),
		Service:  q.Get("service"),
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if result.Records == nil {
		result.Records = []Registration{}
	}

	httputil.RespondWithJSON(w, http.StatusOK, listResponse{Success: true, ListResult: *result})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, reg)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "Registration deleted successfully",
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithData(w, http.StatusOK, stats)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperror.CodeOf(err) {
	case apperror.CodeInvalid, apperror.CodeConflict, apperror.CodeNotFound:
		h.logger.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	httputil.RespondWithAppError(w, err, h.exposeInternal)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
