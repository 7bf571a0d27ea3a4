package model

import "time"

// Job statuses. Transitions are monotonic: pending -> running -> one of the
// terminal states. A retry creates a new record rather than resetting one.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobComplete  = "complete"
	JobError     = "error"
	JobCancelled = "cancelled"
)

type Job struct {
	ID          string            `json:"id" db:"id"`
	ScriptID    string            `json:"script_id" db:"script_id"`
	NodeID      string            `json:"node_id" db:"node_id"`
	ScheduleID  *string           `json:"schedule_id,omitempty" db:"schedule_id"`
	ExecutionID *string           `json:"execution_id,omitempty" db:"execution_id"`
	Priority    string            `json:"priority" db:"priority"`
	Status      string            `json:"status" db:"status"`
	Variables   map[string]string `json:"variables,omitempty" db:"variables"`
	Tags        []string          `json:"tags,omitempty" db:"tags"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"metadata"`
	RetryCount  int               `json:"retry_count" db:"retry_count"`
	MaxRetries  int               `json:"max_retries" db:"max_retries"`
	ExitCode    *int              `json:"exit_code,omitempty" db:"exit_code"`
	Stdout      string            `json:"stdout,omitempty" db:"stdout"`
	Stderr      string            `json:"stderr,omitempty" db:"stderr"`
	QueuedAt    time.Time         `json:"queued_at" db:"queued_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty" db:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}
