package scheduler

import (
	"context"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/window"
)

// ScheduleStore is the slice of schedule persistence the scheduler needs.
type ScheduleStore interface {
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Schedule, error)
	ListEnabled(ctx context.Context) ([]model.Schedule, error)
	RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error
	UpdateNextRun(ctx context.Context, id string, nextRun *time.Time) error
}

// JobStore creates job records and counts active ones for admission.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	CountActiveByNode(ctx context.Context, nodeID string) (int, error)
	CountActiveByMesh(ctx context.Context, mesh string) (int, error)
	CountActiveGlobal(ctx context.Context) (int, error)
}

// NodeStore resolves a schedule's target set to reachable nodes.
type NodeStore interface {
	ResolveTargets(ctx context.Context, targets model.TargetSet) ([]model.Node, error)
}

// QuarantineStore lists nodes currently excluded from dispatch.
type QuarantineStore interface {
	ActiveNodeIDs(ctx context.Context) ([]string, error)
}

// WindowEvaluator gates a firing against maintenance windows.
type WindowEvaluator interface {
	CanRun(ctx context.Context, schedule *model.Schedule, at time.Time) window.Decision
}
