package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meltforce/fitjoin/internal/models"
	"github.com/meltforce/fitjoin/internal/pipeline"
	"github.com/meltforce/fitjoin/internal/storage"
)

// ImportLogs lists past export loads.
type ImportLogs interface {
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	run      pipeline.Runner
	defaults models.Filter
	log      *slog.Logger
	apiKey   string
	whois    WhoIser
	imports  ImportLogs
	mcp      http.Handler
	router   chi.Router
}

// New creates a new Server. Every API request runs the pipeline once with the
// request filter layered over defaults. An empty apiKey disables auth.
func New(run pipeline.Runner, defaults models.Filter, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		run:      run,
		defaults: defaults,
		log:      log,
		apiKey:   apiKey,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetMCP mounts an MCP transport handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
	s.routes()
}

// SetImportLogs serves the import journal at /api/v1/imports.
func (s *Server) SetImportLogs(l ImportLogs) {
	s.imports = l
	s.routes()
}

// SetTailscale enables tailnet identity lookup for request logging.
func (s *Server) SetTailscale(lc WhoIser) {
	s.whois = lc
	s.routes()
}

func (s *Server) routes() {
	r := chi.NewRouter()
	if s.whois != nil {
		r.Use(TailscaleIdentity(s.whois, s.log))
	}
	r.Use(RequestLogging(s.log))
	r.Use(CORS)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/report", s.handleReport)
			r.Get("/records", s.handleRecords)
			r.Get("/summaries", s.handleSummaries)
			r.Get("/statistics", s.handleStatistics)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/buckets", s.handleBuckets)
			r.Get("/weekpart", s.handleWeekpart)
			r.Get("/diagnostics", s.handleDiagnostics)
			r.Get("/users", s.handleUsers)
			r.Get("/users/{id}", s.handleUser)
			r.Get("/export/{table}", s.handleExport)
			if s.imports != nil {
				r.Get("/imports", s.handleImports)
			}
		})
		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}
	})
	s.router = r
}
