package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/verdane/fleetops/internal/dispatch"
	"github.com/verdane/fleetops/internal/metrics"
	"github.com/verdane/fleetops/internal/model"
)

// Projector turns an admitted schedule firing into concrete job records, one
// per target node. Dispatch to the node is best-effort; the job row is the
// source of truth either way.
type Projector struct {
	jobs       JobStore
	nodes      NodeStore
	quarantine QuarantineStore
	gate       *Gate
	dispatcher dispatch.Dispatcher
	logger     zerolog.Logger
}

func NewProjector(jobs JobStore, nodes NodeStore, quarantine QuarantineStore, gate *Gate, dispatcher dispatch.Dispatcher, logger zerolog.Logger) *Projector {
	return &Projector{
		jobs:       jobs,
		nodes:      nodes,
		quarantine: quarantine,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "projector").Logger(),
	}
}

// Project resolves the schedule's target set and creates one pending job per
// admitted node. Quarantined nodes and nodes denied by the concurrency gate
// are skipped. Returns how many jobs were created.
func (p *Projector) Project(ctx context.Context, schedule *model.Schedule) (int, error) {
	nodes, err := p.nodes.ResolveTargets(ctx, schedule.Targets)
	if err != nil {
		return 0, fmt.Errorf("resolve schedule targets: %w", err)
	}
	if len(nodes) == 0 {
		p.logger.Debug().Str("schedule_id", schedule.ID).Msg("no reachable targets")
		return 0, nil
	}

	quarantined := make(map[string]bool)
	ids, err := p.quarantine.ActiveNodeIDs(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("quarantine lookup failed, failing open")
	}
	for _, id := range ids {
		quarantined[id] = true
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := range nodes {
		node := nodes[i]
		g.Go(func() error {
			if quarantined[node.ID] {
				p.logger.Debug().Str("node_id", node.ID).Msg("node quarantined, skipping")
				return nil
			}
			if !p.gate.Admit(gctx, schedule, node) {
				p.logger.Debug().Str("schedule_id", schedule.ID).Str("node_id", node.ID).Msg("concurrency gate denied node")
				return nil
			}

			job := &model.Job{
				ScriptID:   schedule.ScriptID,
				NodeID:     node.ID,
				ScheduleID: &schedule.ID,
				Priority:   schedule.Priority,
				Variables:  schedule.Variables,
				Metadata: map[string]string{
					"schedule_name": schedule.Name,
					"cron":          schedule.CronExpr,
					"timezone":      schedule.Timezone,
				},
			}
			if err := p.jobs.Create(gctx, job); err != nil {
				return fmt.Errorf("create job for node %s: %w", node.ID, err)
			}
			created.Add(1)
			metrics.JobsCreated.WithLabelValues("schedule").Inc()

			if err := p.dispatcher.Dispatch(gctx, job); err != nil {
				p.logger.Warn().Err(err).Str("job_id", job.ID).Str("node_id", node.ID).Msg("dispatch nudge failed, job stays queued")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(created.Load()), err
	}
	return int(created.Load()), nil
}
