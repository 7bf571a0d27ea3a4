package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain collectors for the scheduler and remediation engine. Label values
// are lowercase snake_case.
var (
	ScheduleFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_schedule_fires_total",
			Help: "Schedule firings by outcome",
		},
		[]string{"outcome"},
	)

	JobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_jobs_created_total",
			Help: "Jobs materialized by origin",
		},
		[]string{"origin"},
	)

	ConcurrencyDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_concurrency_denials_total",
			Help: "Admissions denied by concurrency limit",
		},
		[]string{"limit"},
	)

	ActiveExecutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "automation_executions_active",
			Help: "Workflow executions currently running in this process",
		},
	)

	StepResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_step_results_total",
			Help: "Workflow step results by step type and status",
		},
		[]string{"step_type", "status"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_escalations_total",
			Help: "Escalation tier attempts by tier type and outcome",
		},
		[]string{"tier", "outcome"},
	)
)
