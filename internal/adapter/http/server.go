package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/pipeline"
	"github.com/couchcryptid/crisis-alert-card/internal/render"
)

// CardService is the live card as seen by HTTP clients.
type CardService interface {
	sharedobs.ReadinessChecker
	Current() (pipeline.Update, error)
	Toggle(ctx context.Context, key string) (bool, error)
	PointerDown(button int)
	PointerUp(button int, key string)
	KeyDown(code, key string)
}

// Deps are the collaborators the routes need.
type Deps struct {
	Card     CardService
	Hub      *Hub
	Registry *card.Registry
	Renderer *render.Renderer
	// Entity is used for stub configs when the request names none.
	Entity string
}

// Server exposes the dashboard page, the live channel, the card API and the
// health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Websocket writes set their own deadlines.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Card))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("POST /api/alerts/{key}/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/cards", s.handleCards)
	mux.HandleFunc("GET /api/cards/{type}/stub", s.handleStub)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
// Hijacked websocket connections are closed through the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	update, err := s.deps.Card.Current()
	if err != nil {
		s.logger.Error("render page failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.Page(w, update.View, render.PageOptions{Live: true}); err != nil {
		s.logger.Error("write page failed", "error", err)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	s.deps.Hub.serve(w, r, s.deps.Card)
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	update, err := s.deps.Card.Current()
	if err != nil {
		s.logger.Error("render view failed", "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"view": update.View,
		"html": update.HTML,
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	expanded, err := s.deps.Card.Toggle(r.Context(), key)
	if err != nil {
		s.logger.Error("toggle failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"key": key, "expanded": expanded})
}

func (s *Server) handleCards(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.deps.Registry.List())
}

func (s *Server) handleStub(w http.ResponseWriter, r *http.Request) {
	typ := r.PathValue("type")
	def, ok := s.deps.Registry.Lookup(typ)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s: %q", card.ErrUnknownCardType, typ))
		return
	}
	if def.Stub == nil {
		sharedobs.WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}

	entities := r.URL.Query()["entity"]
	if len(entities) == 0 && s.deps.Entity != "" {
		entities = []string{s.deps.Entity}
	}
	sharedobs.WriteJSON(w, http.StatusOK, def.Stub(entities))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
