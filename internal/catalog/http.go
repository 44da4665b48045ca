package catalog

import (
	"net/http"

	"registration-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/catalog", h.Get)
}

type response struct {
	Strict   bool      `json:"strict"`
	Services []Service `json:"services"`
}

func (h *Handler) Get(w http.ResponseWriter, _ *http.Request) {
	services := h.catalog.Services()
	if services == nil {
		services = []Service{}
	}
	for i := range services {
		if services[i].Courses == nil {
			services[i].Courses = []string{}
		}
	}
	httputil.RespondWithData(w, http.StatusOK, response{
		Strict:   h.catalog.Strict(),
		Services: services,
	})
}
