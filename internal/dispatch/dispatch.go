// Package dispatch is the seam between the job queue and whatever transport
// delivers work to node agents. Agents in this deployment poll the queue, so
// the default dispatcher only records that a job became available.
package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/model"
)

// Dispatcher nudges a freshly queued job toward its target node. Failures
// are advisory, the job stays queued either way.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *model.Job) error
}

// Nop leaves jobs for agents to poll.
type Nop struct{}

func (Nop) Dispatch(context.Context, *model.Job) error { return nil }

// Logging records each dispatchable job, useful in development.
type Logging struct {
	logger zerolog.Logger
}

func NewLogging(logger zerolog.Logger) *Logging {
	return &Logging{logger: logger.With().Str("component", "dispatch").Logger()}
}

func (d *Logging) Dispatch(ctx context.Context, job *model.Job) error {
	d.logger.Debug().
		Str("job_id", job.ID).
		Str("node_id", job.NodeID).
		Str("script_id", job.ScriptID).
		Str("priority", job.Priority).
		Msg("job queued for node")
	return nil
}
