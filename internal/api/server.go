package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/baxromumarov/movie-harvester/internal/catalog"
)

// Repository is the read side of the movie table.
type Repository interface {
	ListMovies(ctx context.Context, f catalog.Filter) ([]catalog.Movie, error)
	GenreCounts(ctx context.Context) ([]catalog.GenreCount, error)
	Summary(ctx context.Context) (catalog.Summary, error)
}

type Server struct {
	router  *chi.Mux
	repo    Repository
	metrics http.Handler
}

// NewServer wires the routes. metrics may be nil.
func NewServer(repo Repository, metrics http.Handler) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		repo:    repo,
		metrics: metrics,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/movies", s.handleListMovies)
	s.router.Get("/genres", s.handleGenres)
	s.router.Get("/summary", s.handleSummary)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
