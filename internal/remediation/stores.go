package remediation

import (
	"context"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/notify"
)

// WorkflowStore loads workflow definitions.
type WorkflowStore interface {
	GetByID(ctx context.Context, id string) (*model.Workflow, error)
}

// ExecutionStore is the slice of execution persistence the engine needs.
type ExecutionStore interface {
	Create(ctx context.Context, ex *model.Execution) error
	GetByID(ctx context.Context, id string) (*model.Execution, error)
	FindRunning(ctx context.Context, workflowID, nodeID string) (*model.Execution, error)
	SetCurrentStep(ctx context.Context, id string, stepID *string) error
	AppendStepResult(ctx context.Context, id string, result model.StepResult) error
	AppendAlert(ctx context.Context, id string, alert model.ExecutionAlert) error
	Complete(ctx context.Context, id, status, reason string, finishedAt time.Time, durationMS int64) (bool, error)
	SetStatus(ctx context.Context, id, status string) error
	MarkInterrupted(ctx context.Context, reason string) (int64, error)
}

// JobStore creates and observes the jobs that script steps run through.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	CancelPendingByExecution(ctx context.Context, executionID string) (int64, error)
}

// PolicyStore loads escalation policies.
type PolicyStore interface {
	GetByID(ctx context.Context, id string) (*model.EscalationPolicy, error)
}

// QuarantineStore isolates nodes during escalation.
type QuarantineStore interface {
	Set(ctx context.Context, nodeID, reason string) error
}

// AlertStore persists administrator-facing alerts.
type AlertStore interface {
	Create(ctx context.Context, a *model.Alert) error
}

// WebhookSender delivers webhook payloads for webhook steps and tiers.
type WebhookSender interface {
	Send(ctx context.Context, params notify.WebhookParams) error
}
