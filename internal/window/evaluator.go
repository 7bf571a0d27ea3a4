// Package window decides whether an instant falls inside a configured
// maintenance blackout. Lookup and parse failures fail open: suppressing work
// because a window definition is broken would be worse than running it.
package window

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/timezone"
)

// Store loads the windows a schedule references.
type Store interface {
	GetByIDs(ctx context.Context, ids []string) ([]model.MaintenanceWindow, error)
}

// Decision is the outcome of a window evaluation. BlockedUntil carries the
// end of the blocking window and is zero when Allowed.
type Decision struct {
	Allowed      bool
	Reason       string
	BlockedUntil time.Time
}

type Evaluator struct {
	store  Store
	logger zerolog.Logger
	parser cron.Parser
}

func NewEvaluator(store Store, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		logger: logger.With().Str("component", "window-evaluator").Logger(),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// CanRun evaluates the schedule's referenced windows at the given instant.
// The first window covering the instant decides: exempt priority allows,
// otherwise blocked.
func (e *Evaluator) CanRun(ctx context.Context, schedule *model.Schedule, at time.Time) Decision {
	if len(schedule.WindowIDs) == 0 {
		return Decision{Allowed: true, Reason: "no maintenance windows referenced"}
	}

	windows, err := e.store.GetByIDs(ctx, schedule.WindowIDs)
	if err != nil {
		e.logger.Warn().Err(err).Str("schedule_id", schedule.ID).Msg("window lookup failed, failing open")
		return Decision{Allowed: true, Reason: "window lookup failed, failing open"}
	}

	for _, w := range windows {
		if !w.Enabled {
			continue
		}

		inside, end, err := e.covers(w, at)
		if err != nil {
			e.logger.Warn().Err(err).Str("window_id", w.ID).Msg("unparseable window, failing open")
			continue
		}
		if !inside {
			continue
		}

		for _, p := range w.AllowedPriorities {
			if p == schedule.Priority {
				return Decision{
					Allowed: true,
					Reason:  fmt.Sprintf("priority %s exempt from maintenance window %s", schedule.Priority, w.Name),
				}
			}
		}
		return Decision{
			Allowed:      false,
			Reason:       fmt.Sprintf("inside maintenance window %s", w.Name),
			BlockedUntil: end,
		}
	}

	return Decision{Allowed: true, Reason: "outside all maintenance windows"}
}

// covers reports whether at falls in [start, start+duration] for any start of
// the window's cron expression, evaluated in the window's timezone. Only
// starts at or after at-duration can cover at, so the scan begins just below
// that bound.
func (e *Evaluator) covers(w model.MaintenanceWindow, at time.Time) (bool, time.Time, error) {
	loc, err := timezone.Load(w.Timezone)
	if err != nil {
		return false, time.Time{}, err
	}

	spec, err := e.parser.Parse(w.CronExpr)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("parse window cron %q: %w", w.CronExpr, err)
	}

	duration := time.Duration(w.DurationSeconds) * time.Second
	probe := at.Add(-duration).Add(-time.Second).In(loc)

	for i := 0; i < 100; i++ {
		start := spec.Next(probe)
		if start.IsZero() || start.After(at) {
			return false, time.Time{}, nil
		}
		end := start.Add(duration)
		if !at.After(end) {
			return true, end, nil
		}
		probe = start
	}
	return false, time.Time{}, nil
}
