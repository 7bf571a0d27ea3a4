package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const scheduleColumns = `id, name, description, cron_expr, timezone, script_id, variables, targets, priority, concurrency, window_ids, depends_on, jitter_seconds, missed_job_policy, enabled, last_run, next_run, run_count, fail_count, created_at, updated_at`

func scanSchedule(row interface{ Scan(dest ...any) error }) (model.Schedule, error) {
	var sc model.Schedule
	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.CronExpr, &sc.Timezone,
		&sc.ScriptID, &sc.Variables, &sc.Targets, &sc.Priority, &sc.Concurrency,
		&sc.WindowIDs, &sc.DependsOn, &sc.JitterSeconds, &sc.MissedJobPolicy,
		&sc.Enabled, &sc.LastRun, &sc.NextRun, &sc.RunCount, &sc.FailCount,
		&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return sc, err
	}
	return sc, nil
}

type ScheduleService struct {
	db DB
}

func NewScheduleService(db DB) *ScheduleService {
	return &ScheduleService{db: db}
}

func (s *ScheduleService) Create(ctx context.Context, sched *model.Schedule) error {
	if sched.ID == "" {
		sched.ID = platform.NewID("sched")
	}
	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO schedules (id, name, description, cron_expr, timezone, script_id, variables,
		                        targets, priority, concurrency, window_ids, depends_on, jitter_seconds,
		                        missed_job_policy, enabled, last_run, next_run, run_count, fail_count,
		                        created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		sched.ID, sched.Name, sched.Description, sched.CronExpr, sched.Timezone, sched.ScriptID,
		sched.Variables, sched.Targets, sched.Priority, sched.Concurrency, sched.WindowIDs,
		sched.DependsOn, sched.JitterSeconds, sched.MissedJobPolicy, sched.Enabled,
		sched.LastRun, sched.NextRun, sched.RunCount, sched.FailCount,
		sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (s *ScheduleService) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id,
	)
	sc, err := scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return &sc, nil
}

// GetByIDs returns the schedules for the given ids. Missing ids are simply
// absent from the result.
func (s *ScheduleService) GetByIDs(ctx context.Context, ids []string) ([]model.Schedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get schedules by ids: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

// ListEnabled returns every enabled schedule, used to re-arm timers at startup.
func (s *ScheduleService) ListEnabled(ctx context.Context) ([]model.Schedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE enabled ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list enabled schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

type ScheduleFilters struct {
	Enabled  *bool
	Priority string
}

func (s *ScheduleService) List(ctx context.Context, filters ScheduleFilters, limit int, cursor string) ([]model.Schedule, bool, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`

	var conditions []string
	var args []any
	argN := 1

	if filters.Enabled != nil {
		conditions = append(conditions, fmt.Sprintf("enabled = $%d", argN))
		args = append(args, *filters.Enabled)
		argN++
	}
	if filters.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", argN))
		args = append(args, filters.Priority)
		argN++
	}
	if cursor != "" {
		conditions = append(conditions, fmt.Sprintf("id > $%d", argN))
		args = append(args, cursor)
		argN++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", argN)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate schedules: %w", err)
	}

	hasMore := len(schedules) > limit
	if hasMore {
		schedules = schedules[:limit]
	}
	return schedules, hasMore, nil
}

// UpdateDefinition replaces the mutable definition fields of a schedule.
// Bookkeeping fields (last_run, run_count, fail_count) are untouched.
func (s *ScheduleService) UpdateDefinition(ctx context.Context, sched *model.Schedule) error {
	sched.UpdatedAt = time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE schedules
		 SET name = $1, description = $2, cron_expr = $3, timezone = $4, script_id = $5,
		     variables = $6, targets = $7, priority = $8, concurrency = $9, window_ids = $10,
		     depends_on = $11, jitter_seconds = $12, missed_job_policy = $13, enabled = $14,
		     next_run = $15, updated_at = $16
		 WHERE id = $17`,
		sched.Name, sched.Description, sched.CronExpr, sched.Timezone, sched.ScriptID,
		sched.Variables, sched.Targets, sched.Priority, sched.Concurrency, sched.WindowIDs,
		sched.DependsOn, sched.JitterSeconds, sched.MissedJobPolicy, sched.Enabled,
		sched.NextRun, sched.UpdatedAt, sched.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule %s: %w", sched.ID, err)
	}
	return nil
}

// SetEnabled pauses or resumes a schedule. Disabling clears next_run.
func (s *ScheduleService) SetEnabled(ctx context.Context, id string, enabled bool, nextRun *time.Time) error {
	if !enabled {
		nextRun = nil
	}
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET enabled = $1, next_run = $2, updated_at = $3 WHERE id = $4`,
		enabled, nextRun, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set schedule %s enabled: %w", id, err)
	}
	return nil
}

// RecordRun writes the post-firing bookkeeping in one statement.
func (s *ScheduleService) RecordRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules
		 SET last_run = $1, next_run = $2, run_count = run_count + 1, updated_at = $3
		 WHERE id = $4`,
		lastRun, nextRun, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("record schedule run %s: %w", id, err)
	}
	return nil
}

func (s *ScheduleService) RecordFailure(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET fail_count = fail_count + 1, updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("record schedule failure %s: %w", id, err)
	}
	return nil
}

func (s *ScheduleService) UpdateNextRun(ctx context.Context, id string, nextRun *time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET next_run = $1, updated_at = $2 WHERE id = $3`,
		nextRun, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update schedule next run %s: %w", id, err)
	}
	return nil
}

func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	return nil
}
