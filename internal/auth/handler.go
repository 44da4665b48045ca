package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"registration-service/internal/apperror"
	"registration-service/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/login", h.Login)
}

// Login authenticates the admin
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode login request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithAppError(w, apperror.Validation(map[string]string{
			"credentials": "Username and password are required",
		}), false)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.RespondWithAppError(w, err, false)
		return
	}

	httputil.RespondWithData(w, http.StatusOK, resp)
}

// Middleware rejects requests without a valid access token. The token is
// read from the Authorization header, or from the token query parameter for
// websocket upgrades where browsers cannot set headers.
func Middleware(tokens *Tokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.RespondWithAppError(w, apperror.New(apperror.CodeUnauthorized, "Authentication required"), false)
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid access token", "path", r.URL.Path, "error", err)
				httputil.RespondWithAppError(w, apperror.Wrap(err, apperror.CodeUnauthorized, "Invalid or expired token"), false)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSubject(r.Context(), claims.Subject)))
		})
	}
}
