package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zg0ul/portfolio/internal/config"
	"github.com/zg0ul/portfolio/internal/metrics"
	"github.com/zg0ul/portfolio/internal/project"
	"github.com/zg0ul/portfolio/internal/tracker"
)

// Deps are the collaborators the server routes to. Pages and Images are
// optional.
type Deps struct {
	Store        project.Store
	StoreStats   func() map[string]metrics.StatsSnapshot
	TrackerStats func() tracker.Stats
	Pages        interface{ Routes(chi.Router) }
	Images       http.Handler
	ImagePath    string
}

// Server is the HTTP front of the portfolio: JSON API, pages and images.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/projects", s.handleListProjects)
	r.Get("/api/projects/{id}", s.handleGetProject)

	// Admin endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.AdminAPIKey, s.log))

		r.Post("/api/projects", s.handleCreateProject)
		r.Post("/api/projects/import", s.handleImportProject)
		r.Put("/api/projects/{id}", s.handleUpdateProject)
		r.Delete("/api/projects/{id}", s.handleDeleteProject)
		r.Get("/api/stats/store", s.handleStoreStats)
	})

	if s.deps.Images != nil {
		path := s.deps.ImagePath
		if path == "" {
			path = "/_image"
		}
		r.Method(http.MethodGet, path, s.deps.Images)
	}
	if s.deps.Pages != nil {
		s.deps.Pages.Routes(r)
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
