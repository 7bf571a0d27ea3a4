package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const jobColumns = `id, script_id, node_id, schedule_id, execution_id, priority, status, variables, tags, metadata, retry_count, max_retries, exit_code, stdout, stderr, queued_at, started_at, finished_at, created_at, updated_at`

func scanJob(row interface{ Scan(dest ...any) error }) (model.Job, error) {
	var j model.Job
	err := row.Scan(&j.ID, &j.ScriptID, &j.NodeID, &j.ScheduleID, &j.ExecutionID,
		&j.Priority, &j.Status, &j.Variables, &j.Tags, &j.Metadata,
		&j.RetryCount, &j.MaxRetries, &j.ExitCode, &j.Stdout, &j.Stderr,
		&j.QueuedAt, &j.StartedAt, &j.FinishedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return j, err
	}
	return j, nil
}

type JobService struct {
	db DB
}

func NewJobService(db DB) *JobService {
	return &JobService{db: db}
}

func (s *JobService) Create(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = platform.NewID("job")
	}
	now := time.Now()
	if job.Status == "" {
		job.Status = model.JobPending
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = now
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO jobs (id, script_id, node_id, schedule_id, execution_id, priority, status,
		                   variables, tags, metadata, retry_count, max_retries, exit_code,
		                   stdout, stderr, queued_at, started_at, finished_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		job.ID, job.ScriptID, job.NodeID, job.ScheduleID, job.ExecutionID, job.Priority,
		job.Status, job.Variables, job.Tags, job.Metadata, job.RetryCount, job.MaxRetries,
		job.ExitCode, job.Stdout, job.Stderr, job.QueuedAt, job.StartedAt, job.FinishedAt,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id,
	)
	j, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &j, nil
}

type JobFilters struct {
	NodeID      string
	ScheduleID  string
	ExecutionID string
	Status      string
}

func (s *JobService) List(ctx context.Context, filters JobFilters, limit int, cursor string) ([]model.Job, bool, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`

	var conditions []string
	var args []any
	argN := 1

	if filters.NodeID != "" {
		conditions = append(conditions, fmt.Sprintf("node_id = $%d", argN))
		args = append(args, filters.NodeID)
		argN++
	}
	if filters.ScheduleID != "" {
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", argN))
		args = append(args, filters.ScheduleID)
		argN++
	}
	if filters.ExecutionID != "" {
		conditions = append(conditions, fmt.Sprintf("execution_id = $%d", argN))
		args = append(args, filters.ExecutionID)
		argN++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if cursor != "" {
		conditions = append(conditions, fmt.Sprintf("created_at < (SELECT created_at FROM jobs WHERE id = $%d)", argN))
		args = append(args, cursor)
		argN++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argN)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate jobs: %w", err)
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
	}
	return jobs, hasMore, nil
}

// CountActiveByNode counts pending and running jobs targeting one node.
func (s *JobService) CountActiveByNode(ctx context.Context, nodeID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE node_id = $1 AND status IN ('pending', 'running')`,
		nodeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs for node %s: %w", nodeID, err)
	}
	return count, nil
}

// CountActiveByMesh counts pending and running jobs across all nodes in a mesh.
func (s *JobService) CountActiveByMesh(ctx context.Context, mesh string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs j
		 JOIN nodes n ON j.node_id = n.id
		 WHERE n.mesh = $1 AND j.status IN ('pending', 'running')`,
		mesh,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs for mesh %s: %w", mesh, err)
	}
	return count, nil
}

// CountActiveGlobal counts all pending and running jobs.
func (s *JobService) CountActiveGlobal(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status IN ('pending', 'running')`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// MarkRunning transitions a pending job to running.
func (s *JobService) MarkRunning(ctx context.Context, id string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = $1, started_at = $2, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		model.JobRunning, now, now, id, model.JobPending,
	)
	if err != nil {
		return fmt.Errorf("mark job %s running: %w", id, err)
	}
	return nil
}

// Finish writes a terminal result reported by the dispatch collaborator.
// Already-terminal jobs are left untouched.
func (s *JobService) Finish(ctx context.Context, id, status string, exitCode *int, stdout, stderr string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = $1, exit_code = $2, stdout = $3, stderr = $4,
		                 finished_at = $5, updated_at = $6
		 WHERE id = $7 AND status IN ('pending', 'running')`,
		status, exitCode, stdout, stderr, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	return nil
}

// Cancel marks a non-terminal job cancelled. The remote side owns actual
// interruption of in-flight work.
func (s *JobService) Cancel(ctx context.Context, id string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = $1, finished_at = $2, updated_at = $3
		 WHERE id = $4 AND status IN ('pending', 'running')`,
		model.JobCancelled, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}
	return nil
}

// CancelPendingByNode cancels every still-pending job for a node. Used when
// the node enters quarantine.
func (s *JobService) CancelPendingByNode(ctx context.Context, nodeID string) (int64, error) {
	now := time.Now()
	tag, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = $1, finished_at = $2, updated_at = $3
		 WHERE node_id = $4 AND status = $5`,
		model.JobCancelled, now, now, nodeID, model.JobPending,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel pending jobs for node %s: %w", nodeID, err)
	}
	return tag.RowsAffected(), nil
}

// CancelPendingByExecution cancels still-pending jobs spawned by an execution.
func (s *JobService) CancelPendingByExecution(ctx context.Context, executionID string) (int64, error) {
	now := time.Now()
	tag, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = $1, finished_at = $2, updated_at = $3
		 WHERE execution_id = $4 AND status = $5`,
		model.JobCancelled, now, now, executionID, model.JobPending,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel pending jobs for execution %s: %w", executionID, err)
	}
	return tag.RowsAffected(), nil
}
