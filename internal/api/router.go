package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meur/residency/internal/allocation"
	"github.com/meur/residency/internal/logging"
	"github.com/meur/residency/internal/metrics"
	"github.com/meur/residency/internal/rankings"
	"github.com/meur/residency/internal/storage"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Options tune the HTTP server
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// EventRate limits drag events per second on each websocket
	EventRate float64
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck
}

// Server holds the HTTP server dependencies
type Server struct {
	store    *storage.Store
	rankings *rankings.Manager
	runner   *allocation.Runner
	metrics  *metrics.Metrics
	log      *zap.Logger
	opts     Options
	router   chi.Router
}

// New creates a new API server
func New(store *storage.Store, mgr *rankings.Manager, runner *allocation.Runner, m *metrics.Metrics, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.EventRate <= 0 {
		opts.EventRate = 20
	}

	s := &Server{
		store:    store,
		rankings: mgr,
		runner:   runner,
		metrics:  m,
		log:      log,
		opts:     opts,
		router:   chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the router so callers can mount extra handlers such as static files
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// the websocket outlives the request timeout and must not be compressed
		r.Get("/boards/{kind}/{ownerID}/ws", s.handleBoardSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
			r.Use(middleware.Compress(5))

			// Directory
			r.Get("/companies", s.handleGetCompanies)
			r.Post("/companies", s.handleCreateCompany)
			r.Get("/companies/{id}", s.handleGetCompany)
			r.Post("/companies/{id}/positions", s.handleCreatePosition)
			r.Get("/companies/{id}/interviewees", s.handleGetInterviewees)
			r.Get("/companies/{id}/matches", s.handleGetCompanyMatches)

			r.Get("/students", s.handleGetStudents)
			r.Post("/students", s.handleCreateStudent)
			r.Get("/students/{id}", s.handleGetStudent)
			r.Get("/students/{id}/interviews", s.handleGetStudentInterviews)

			r.Get("/positions", s.handleGetPositions)
			r.Get("/jobs", s.handleGetJobsBoard)

			// Ranking boards
			r.Get("/boards/{kind}/{ownerID}", s.handleGetBoard)
			r.Post("/boards/{kind}/{ownerID}/events", s.handleBoardEvent)
			r.Put("/boards/{kind}/{ownerID}/ranking", s.handleRearrange)
			r.Put("/boards/{kind}/{ownerID}/filter", s.handleSetFilter)
			r.Post("/boards/{kind}/{ownerID}/submit", s.handleSubmit)
			r.Delete("/boards/{kind}/{ownerID}/draft", s.handleDiscardDraft)
			r.Get("/rankings/{kind}/{ownerID}", s.handleGetRanking)

			// Allocation runs
			r.Get("/allocations", s.handleGetAllocations)
			r.Post("/allocations/run", s.handleAllocate)
			r.Get("/matches", s.handleGetMatches)
			r.Post("/matches/run", s.handleMatch)
		})
	})

	if s.opts.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Health check
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.opts.Health))
	status := http.StatusOK
	for name, check := range s.opts.Health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	respondJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// idParam parses a positive integer URL parameter
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// internalError logs err and answers with a generic message
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.log.Error(strings.ToLower(message),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	status := http.StatusInternalServerError
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	respondError(w, status, message)
}
