// Package scheduler owns one timer per enabled schedule, fires evaluations
// at computed cron instants, and projects admitted firings into job records.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/timezone"
)

// specParser accepts standard five-field expressions plus @descriptors such
// as @daily and @every 1h30m.
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec parses and validates a cron expression.
func ParseSpec(expr string) (cron.Schedule, error) {
	spec, err := specParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return spec, nil
}

// ValidateExpr reports whether a cron expression is acceptable for arming.
func ValidateExpr(expr string) error {
	_, err := ParseSpec(expr)
	return err
}

// ComputeNextRun returns the next fire instant strictly after the given time,
// evaluated in the schedule's timezone. A nil result means the expression
// yields no future instants. Pure: no stored state is touched.
func ComputeNextRun(schedule *model.Schedule, after time.Time) (*time.Time, error) {
	loc, err := timezone.Load(schedule.Timezone)
	if err != nil {
		return nil, err
	}
	spec, err := ParseSpec(schedule.CronExpr)
	if err != nil {
		return nil, err
	}
	next := spec.Next(after.In(loc))
	if next.IsZero() {
		return nil, nil
	}
	return &next, nil
}

// ComputeNext returns up to count upcoming fire instants after the given
// time, for preview. Pure: no stored state is touched.
func ComputeNext(schedule *model.Schedule, after time.Time, count int) ([]time.Time, error) {
	loc, err := timezone.Load(schedule.Timezone)
	if err != nil {
		return nil, err
	}
	spec, err := ParseSpec(schedule.CronExpr)
	if err != nil {
		return nil, err
	}

	instants := make([]time.Time, 0, count)
	cursor := after.In(loc)
	for i := 0; i < count; i++ {
		next := spec.Next(cursor)
		if next.IsZero() {
			break
		}
		instants = append(instants, next)
		cursor = next
	}
	return instants, nil
}
