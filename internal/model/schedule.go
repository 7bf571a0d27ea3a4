package model

import "time"

// Schedule priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityNormal   = "normal"
	PriorityLow      = "low"
)

// Missed-job policies applied when a firing is blocked by a maintenance window.
const (
	MissedJobSkip      = "skip"
	MissedJobImmediate = "immediate"
	MissedJobQueue     = "queue"
)

type Schedule struct {
	ID              string            `json:"id" db:"id"`
	Name            string            `json:"name" db:"name"`
	Description     string            `json:"description,omitempty" db:"description"`
	CronExpr        string            `json:"cron_expr" db:"cron_expr"`
	Timezone        string            `json:"timezone" db:"timezone"`
	ScriptID        string            `json:"script_id" db:"script_id"`
	Variables       map[string]string `json:"variables,omitempty" db:"variables"`
	Targets         TargetSet         `json:"targets" db:"targets"`
	Priority        string            `json:"priority" db:"priority"`
	Concurrency     ConcurrencyLimits `json:"concurrency" db:"concurrency"`
	WindowIDs       []string          `json:"window_ids,omitempty" db:"window_ids"`
	DependsOn       []string          `json:"depends_on,omitempty" db:"depends_on"`
	JitterSeconds   int               `json:"jitter_seconds" db:"jitter_seconds"`
	MissedJobPolicy string            `json:"missed_job_policy" db:"missed_job_policy"`
	Enabled         bool              `json:"enabled" db:"enabled"`
	LastRun         *time.Time        `json:"last_run,omitempty" db:"last_run"`
	NextRun         *time.Time        `json:"next_run,omitempty" db:"next_run"`
	RunCount        int               `json:"run_count" db:"run_count"`
	FailCount       int               `json:"fail_count" db:"fail_count"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// TargetSet is the union of explicit node ids and named node groups.
type TargetSet struct {
	NodeIDs []string `json:"node_ids,omitempty"`
	Groups  []string `json:"groups,omitempty"`
}

// ConcurrencyLimits caps concurrent jobs spawned by a schedule. Zero means
// the limit is unset and imposes no constraint.
type ConcurrencyLimits struct {
	MaxPerNode int `json:"max_per_node,omitempty"`
	MaxPerMesh int `json:"max_per_mesh,omitempty"`
	MaxGlobal  int `json:"max_global,omitempty"`
}
