package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/reserve/internal/engine"
	"github.com/lazypower/reserve/internal/identity"
	"github.com/lazypower/reserve/internal/metrics"
	"github.com/lazypower/reserve/internal/store"
)

// Server is the reserve HTTP API server.
type Server struct {
	engine   *engine.Engine
	db       *store.DB
	resolver *identity.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a new Server over the engine. Requests are attributed to users
// by resolver.
func New(eng *engine.Engine, resolver *identity.Resolver, logger *slog.Logger, version string) *Server {
	s := &Server{
		engine:   eng,
		db:       eng.DB,
		resolver: resolver,
		metrics:  eng.Metrics,
		logger:   logger.With("component", "server"),
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(identity.Middleware(s.resolver))

			r.Route("/deposits", func(r chi.Router) {
				r.Get("/", s.handleListDeposits)
				r.Post("/", s.handleCreateDeposit)
				r.Get("/surface", s.handleSurface)
				r.Post("/surface", s.handleSurface)
				r.Get("/{id}", s.handleGetDeposit)
				r.Patch("/{id}", s.handleUpdateDeposit)
				r.Delete("/{id}", s.handleDeleteDeposit)
				r.Put("/{id}/status", s.handleSetDepositStatus)
				r.Post("/{id}/surfaced", s.handleMarkSurfaced)
			})

			r.Route("/rainy-day", func(r chi.Router) {
				r.Post("/logs", s.handleCreateRainyLog)
				r.Get("/logs", s.handleListRainyLogs)
				r.Patch("/logs/{id}", s.handlePatchRainyLog)
				r.Post("/start", s.handleStartSession)
				r.Post("/rate", s.handleRateRound)
			})

			r.Get("/stats", s.handleStats)

			r.Route("/circle", func(r chi.Router) {
				r.Post("/invites", s.handleCreateInvite)
				r.Post("/invites/{code}/accept", s.handleAcceptInvite)
				r.Get("/connections", s.handleListConnections)
				r.Delete("/connections/{userID}", s.handleRemoveConnection)
				r.Post("/shared", s.handleShare)
				r.Get("/shared/received", s.handleListReceived)
				r.Get("/shared/sent", s.handleListSent)
				r.Get("/shared/surface", s.handleSurfaceShared)
				r.Post("/shared/{id}/use", s.handleUseShared)
				r.Put("/shared/{id}/status", s.handleSetSharedStatus)
				r.Get("/summary", s.handleSummary)
				r.Get("/summaries", s.handleListSummaries)
			})

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)
		})
	})

	s.router = r
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.HTTPLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.PingContext(r.Context()); err != nil {
		dbOK = false
	}

	auth := "device"
	if s.resolver.TokensEnabled() {
		auth = "bearer"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"auth":    auth,
	})
}
