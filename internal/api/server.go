package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/api/handler"
	mw "github.com/verdane/fleetops/internal/api/middleware"
	"github.com/verdane/fleetops/internal/config"
	"github.com/verdane/fleetops/internal/core"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	corePool *pgxpool.Pool
	runner   handler.ScheduleRunner
	engine   handler.RemediationEngine
	cfg      *config.Config
}

// NewServer wires the HTTP surface. The scheduler and remediation engine are
// shared with the background loops, so they arrive constructed.
func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, services *core.Services, runner handler.ScheduleRunner, engine handler.RemediationEngine, cfg *config.Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		corePool: coreDB,
		runner:   runner,
		engine:   engine,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Schedules
		schedule := handler.NewSchedule(s.services.Schedule, s.runner)
		r.Get("/schedules", schedule.List)
		r.Post("/schedules", schedule.Create)
		r.Get("/schedules/{id}", schedule.Get)
		r.Put("/schedules/{id}", schedule.Update)
		r.Delete("/schedules/{id}", schedule.Delete)
		r.Post("/schedules/{id}/pause", schedule.Pause)
		r.Post("/schedules/{id}/resume", schedule.Resume)
		r.Post("/schedules/{id}/run", schedule.RunNow)
		r.Get("/schedules/{id}/preview", schedule.Preview)

		// Maintenance windows
		window := handler.NewMaintenanceWindow(s.services.MaintenanceWindow)
		r.Get("/maintenance-windows", window.List)
		r.Post("/maintenance-windows", window.Create)
		r.Get("/maintenance-windows/{id}", window.Get)
		r.Put("/maintenance-windows/{id}", window.Update)
		r.Delete("/maintenance-windows/{id}", window.Delete)

		// Workflows
		workflow := handler.NewWorkflow(s.services.Workflow)
		r.Get("/workflows", workflow.List)
		r.Post("/workflows", workflow.Create)
		r.Post("/workflows/validate", workflow.Validate)
		r.Get("/workflows/{id}", workflow.Get)
		r.Put("/workflows/{id}", workflow.Update)
		r.Delete("/workflows/{id}", workflow.Delete)

		// Executions
		execution := handler.NewExecution(s.services.Execution, s.engine)
		r.Get("/executions", execution.List)
		r.Post("/executions", execution.Trigger)
		r.Get("/executions/{id}", execution.Get)
		r.Post("/executions/{id}/cancel", execution.Cancel)

		// Escalation policies
		policy := handler.NewEscalationPolicy(s.services.EscalationPolicy)
		r.Get("/escalation-policies", policy.List)
		r.Post("/escalation-policies", policy.Create)
		r.Get("/escalation-policies/{id}", policy.Get)
		r.Put("/escalation-policies/{id}", policy.Update)
		r.Delete("/escalation-policies/{id}", policy.Delete)

		// Alerts
		alert := handler.NewAlert(s.services.Alert)
		r.Get("/alerts", alert.List)

		// Nodes and quarantine
		node := handler.NewNode(s.services.Node)
		r.Get("/nodes", node.List)
		r.Post("/nodes", node.Register)
		r.Get("/nodes/{id}", node.Get)
		r.Put("/nodes/{id}/status", node.SetStatus)

		quarantine := handler.NewQuarantine(s.services.Quarantine, s.services.Node)
		r.Get("/quarantine", quarantine.List)
		r.Put("/nodes/{id}/quarantine", quarantine.Set)
		r.Delete("/nodes/{id}/quarantine", quarantine.Clear)

		// Jobs. start and result are reported by the node-side runner.
		job := handler.NewJob(s.services.Job)
		r.Get("/jobs", job.List)
		r.Get("/jobs/{id}", job.Get)
		r.Post("/jobs/{id}/cancel", job.Cancel)
		r.Post("/jobs/{id}/start", job.Start)
		r.Post("/jobs/{id}/result", job.Result)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
