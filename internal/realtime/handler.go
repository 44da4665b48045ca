package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"registration-service/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Handler struct {
	room     *Room
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHandler accepts websocket upgrades from the given origins. Requests
// without an Origin header are not from a browser and are always accepted.
func NewHandler(room *Room, allowedOrigins []string, logger *slog.Logger, m *metrics.Metrics) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		room:    room,
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			if !ok {
				logger.Warn("rejected websocket origin", "origin", origin)
			}
			return ok
		},
	}
	return h
}

// RegisterRoutes mounts /ws. guard may be nil.
func (h *Handler) RegisterRoutes(router chi.Router, guard func(http.Handler) http.Handler) {
	if guard != nil {
		router.With(guard).Get("/ws", h.ServeWS)
		return
	}
	router.Get("/ws", h.ServeWS)
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.ctx.Done():
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.InfoContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := newClient(h.ctx, uuid.NewString(), conn, h.room, h.logger)
	h.logger.InfoContext(r.Context(), "admin client connected", "client_id", c.id, "remote", r.RemoteAddr)

	h.wg.Add(1)
	h.metrics.RecordAdminConnection(r.Context(), 1)
	defer func() {
		h.metrics.RecordAdminConnection(context.Background(), -1)
		h.logger.Info("admin client disconnected", "client_id", c.id)
		h.wg.Done()
	}()

	go c.writePump()
	c.readPump()
}

// Shutdown closes every open connection and waits for the handlers to return.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
