package model

import "time"

// Execution statuses. running is the only non-terminal state.
const (
	ExecutionRunning    = "running"
	ExecutionSuccess    = "success"
	ExecutionFailed     = "failed"
	ExecutionCancelled  = "cancelled"
	ExecutionRolledBack = "rolled_back"
)

// Step result statuses.
const (
	StepSuccess = "success"
	StepFailed  = "failed"
)

// Execution is one run of a workflow against one node. Step results are kept
// in completion order; one result is recorded per attempt.
type Execution struct {
	ID               string            `json:"id" db:"id"`
	WorkflowID       string            `json:"workflow_id" db:"workflow_id"`
	WorkflowName     string            `json:"workflow_name" db:"workflow_name"`
	NodeID           string            `json:"node_id" db:"node_id"`
	Status           string            `json:"status" db:"status"`
	CurrentStep      *string           `json:"current_step,omitempty" db:"current_step"`
	StepResults      []StepResult      `json:"step_results" db:"step_results"`
	Alerts           []ExecutionAlert  `json:"alerts,omitempty" db:"alerts"`
	TriggeredBy      string            `json:"triggered_by" db:"triggered_by"`
	TriggerContext   map[string]string `json:"trigger_context,omitempty" db:"trigger_context"`
	CompletionReason string            `json:"completion_reason,omitempty" db:"completion_reason"`
	StartedAt        time.Time         `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time        `json:"finished_at,omitempty" db:"finished_at"`
	DurationMS       int64             `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

type StepResult struct {
	StepID          string    `json:"step_id"`
	StepType        string    `json:"step_type"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationMS      int64     `json:"duration_ms"`
	Output          string    `json:"output,omitempty"`
	Error           string    `json:"error,omitempty"`
	ExitCode        *int      `json:"exit_code,omitempty"`
	RetryCount      int       `json:"retry_count"`
	ConditionResult *bool     `json:"condition_result,omitempty"`
}

// ExecutionAlert records one escalation tier attempt on the execution.
type ExecutionAlert struct {
	Tier      string    `json:"tier"`
	Message   string    `json:"message"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}
