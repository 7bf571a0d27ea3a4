package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/model"
)

// Gate decides admission for a candidate job: inter-schedule dependencies
// and per-node, per-mesh and global concurrency ceilings. Lookup errors fail
// open; suppressing the fleet because the database hiccuped is the worse
// failure mode.
type Gate struct {
	schedules ScheduleStore
	jobs      JobStore
	maxGlobal int
	logger    zerolog.Logger
}

// NewGate builds a gate. maxGlobal is the process-wide ceiling on active
// jobs, applied independently of any per-schedule limit; zero disables it.
func NewGate(schedules ScheduleStore, jobs JobStore, maxGlobal int, logger zerolog.Logger) *Gate {
	return &Gate{
		schedules: schedules,
		jobs:      jobs,
		maxGlobal: maxGlobal,
		logger:    logger.With().Str("component", "gate").Logger(),
	}
}

// DependenciesMet reports whether every schedule in dependsOn has run at
// least as recently as this schedule's own last firing. A dependency that
// never ran, or no longer exists, is unmet.
func (g *Gate) DependenciesMet(ctx context.Context, schedule *model.Schedule) (bool, string) {
	if len(schedule.DependsOn) == 0 {
		return true, ""
	}

	deps, err := g.schedules.GetByIDs(ctx, schedule.DependsOn)
	if err != nil {
		g.logger.Warn().Err(err).Str("schedule_id", schedule.ID).Msg("dependency lookup failed, failing open")
		return true, ""
	}

	byID := make(map[string]*model.Schedule, len(deps))
	for i := range deps {
		byID[deps[i].ID] = &deps[i]
	}

	for _, depID := range schedule.DependsOn {
		dep, ok := byID[depID]
		if !ok {
			return false, fmt.Sprintf("dependency %s not found", depID)
		}
		if dep.LastRun == nil {
			return false, fmt.Sprintf("dependency %s has never run", dep.Name)
		}
		if schedule.LastRun != nil && dep.LastRun.Before(*schedule.LastRun) {
			return false, fmt.Sprintf("dependency %s has not run since last firing", dep.Name)
		}
	}
	return true, ""
}

// Admit reports whether a job for this schedule may start on the node right
// now. Every configured limit must have headroom. Counting is not serialized
// against other admissions, so brief overshoot under racing firings is
// accepted.
func (g *Gate) Admit(ctx context.Context, schedule *model.Schedule, node model.Node) bool {
	limits := schedule.Concurrency

	if limits.MaxPerNode > 0 {
		n, err := g.jobs.CountActiveByNode(ctx, node.ID)
		switch {
		case err != nil:
			g.logger.Warn().Err(err).Str("node_id", node.ID).Msg("node job count failed, failing open")
		case n >= limits.MaxPerNode:
			metrics.ConcurrencyDenials.WithLabelValues("node").Inc()
			return false
		}
	}

	if limits.MaxPerMesh > 0 && node.Mesh != "" {
		n, err := g.jobs.CountActiveByMesh(ctx, node.Mesh)
		switch {
		case err != nil:
			g.logger.Warn().Err(err).Str("mesh", node.Mesh).Msg("mesh job count failed, failing open")
		case n >= limits.MaxPerMesh:
			metrics.ConcurrencyDenials.WithLabelValues("mesh").Inc()
			return false
		}
	}

	if limits.MaxGlobal > 0 || g.maxGlobal > 0 {
		n, err := g.jobs.CountActiveGlobal(ctx)
		switch {
		case err != nil:
			g.logger.Warn().Err(err).Msg("global job count failed, failing open")
		case limits.MaxGlobal > 0 && n >= limits.MaxGlobal:
			metrics.ConcurrencyDenials.WithLabelValues("global").Inc()
			return false
		case g.maxGlobal > 0 && n >= g.maxGlobal:
			metrics.ConcurrencyDenials.WithLabelValues("process").Inc()
			return false
		}
	}

	return true
}
