// Package httpapi exposes the flow editor over HTTP for the canvas front end
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/usecases"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/metrics"
)

// NotificationSource serves recently issued notifications
type NotificationSource interface {
	Recent(limit int) []dto.Notification
}

// Options wires a Server. Editor is required; the rest are optional.
type Options struct {
	Editor        *usecases.Editor
	Repository    flow.Repository
	Notifications NotificationSource
	Metrics       *metrics.Collector
	Logger        *zap.Logger
	// RequestTimeout bounds each request; zero disables the limit
	RequestTimeout time.Duration
}

// Server holds the HTTP handlers
type Server struct {
	editor        *usecases.Editor
	repo          flow.Repository
	notifications NotificationSource
	metrics       *metrics.Collector
	logger        *zap.Logger
	timeout       time.Duration
}

// NewServer creates the HTTP handlers
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		editor:        opts.Editor,
		repo:          opts.Repository,
		notifications: opts.Notifications,
		metrics:       opts.Metrics,
		logger:        logger,
		timeout:       opts.RequestTimeout,
	}
}

// Routes configures all routes and middleware
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	if s.metrics != nil {
		router.Use(metricsMiddleware(s.metrics))
	}

	router.Get("/healthz", s.health)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(chimiddleware.Timeout(s.timeout))
		}

		r.Get("/node-types", s.nodeTypes)

		r.Route("/flow", func(r chi.Router) {
			r.Get("/", s.getFlow)
			r.Put("/", s.importFlow)
			r.Get("/export", s.exportFlow)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", s.addNode)
			r.Patch("/{nodeID}/data", s.updateNodeData)
			r.Put("/{nodeID}/position", s.moveNode)
			r.Delete("/{nodeID}", s.removeNode)
			r.Post("/{nodeID}/select", s.selectNode)
		})
		r.Post("/selection/clear", s.clearSelection)

		r.Post("/connections", s.connect)
		r.Delete("/edges/{edgeID}", s.disconnect)

		r.Get("/validate", s.validate)
		r.Post("/save", s.save)

		r.Get("/notifications", s.listNotifications)

		r.Route("/flows", func(r chi.Router) {
			r.Get("/", s.listFlows)
			r.Post("/{flowID}/load", s.loadFlow)
			r.Delete("/{flowID}", s.deleteFlow)
		})
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
