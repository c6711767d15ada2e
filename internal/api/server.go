package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/formgest/internal/config"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/dgallion1/formgest/internal/parser"
	"github.com/dgallion1/formgest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// PageFetcher retrieves the HTML of a form page.
type PageFetcher interface {
	Fetch(ctx context.Context, formURL string) (string, error)
}

// Deps are the collaborators behind the HTTP surface. Jobs and LLM may be
// nil when no Gemini key is configured; the generation routes then answer 503.
type Deps struct {
	Parser  *parser.Orchestrator
	Fetcher PageFetcher
	Jobs    *pipeline.Orchestrator
	LLM     generate.Completer
	Model   string
	Stats   *generate.CompletionStats
}

// Server is the HTTP API server for formgest.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Parser == nil {
		deps.Parser = parser.New(parser.Options{
			Thresholds:           cfg.Thresholds,
			PersonalInfoKeywords: cfg.PersonalInfoKeywords,
			Logger:               log,
		})
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
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
	r.Use(CORS)

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/config", s.handleConfig)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/proxy", s.handleProxy)
		r.Post("/api/parse", s.handleParse)
		r.Post("/api/gemini", s.handleGemini)

		r.Post("/api/generate", s.handleGenerate)
		r.Get("/api/generate/{jobID}/status", s.handleGenerateStatus)
		r.Get("/api/generate/{jobID}/export", s.handleExport)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hasApiKey":   s.cfg.GeminiAPIKey != "",
		"environment": s.cfg.Environment,
	})
}
