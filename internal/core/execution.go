package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const executionColumns = `id, workflow_id, workflow_name, node_id, status, current_step, step_results, alerts, triggered_by, trigger_context, completion_reason, started_at, finished_at, duration_ms, created_at, updated_at`

func scanExecution(row interface{ Scan(dest ...any) error }) (model.Execution, error) {
	var ex model.Execution
	err := row.Scan(&ex.ID, &ex.WorkflowID, &ex.WorkflowName, &ex.NodeID, &ex.Status,
		&ex.CurrentStep, &ex.StepResults, &ex.Alerts, &ex.TriggeredBy, &ex.TriggerContext,
		&ex.CompletionReason, &ex.StartedAt, &ex.FinishedAt, &ex.DurationMS,
		&ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		return ex, err
	}
	return ex, nil
}

type ExecutionService struct {
	db DB
}

func NewExecutionService(db DB) *ExecutionService {
	return &ExecutionService{db: db}
}

func (s *ExecutionService) Create(ctx context.Context, ex *model.Execution) error {
	if ex.ID == "" {
		ex.ID = platform.NewID("exec")
	}
	now := time.Now()
	if ex.Status == "" {
		ex.Status = model.ExecutionRunning
	}
	if ex.StartedAt.IsZero() {
		ex.StartedAt = now
	}
	if ex.StepResults == nil {
		ex.StepResults = []model.StepResult{}
	}
	ex.CreatedAt = now
	ex.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO executions (id, workflow_id, workflow_name, node_id, status, current_step,
		                         step_results, alerts, triggered_by, trigger_context,
		                         completion_reason, started_at, finished_at, duration_ms,
		                         created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		ex.ID, ex.WorkflowID, ex.WorkflowName, ex.NodeID, ex.Status, ex.CurrentStep,
		ex.StepResults, ex.Alerts, ex.TriggeredBy, ex.TriggerContext,
		ex.CompletionReason, ex.StartedAt, ex.FinishedAt, ex.DurationMS,
		ex.CreatedAt, ex.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

func (s *ExecutionService) GetByID(ctx context.Context, id string) (*model.Execution, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = $1`, id,
	)
	ex, err := scanExecution(row)
	if err != nil {
		return nil, fmt.Errorf("get execution %s: %w", id, err)
	}
	return &ex, nil
}

// FindRunning returns the running execution for a workflow+node pair, or nil
// when none exists.
func (s *ExecutionService) FindRunning(ctx context.Context, workflowID, nodeID string) (*model.Execution, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM executions
		 WHERE workflow_id = $1 AND node_id = $2 AND status = $3
		 ORDER BY started_at DESC LIMIT 1`,
		workflowID, nodeID, model.ExecutionRunning,
	)
	ex, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find running execution for workflow %s node %s: %w", workflowID, nodeID, err)
	}
	return &ex, nil
}

type ExecutionFilters struct {
	WorkflowID string
	NodeID     string
	Status     string
}

func (s *ExecutionService) List(ctx context.Context, filters ExecutionFilters, limit int, cursor string) ([]model.Execution, bool, error) {
	query := `SELECT ` + executionColumns + ` FROM executions`

	var conditions []string
	var args []any
	argN := 1

	if filters.WorkflowID != "" {
		conditions = append(conditions, fmt.Sprintf("workflow_id = $%d", argN))
		args = append(args, filters.WorkflowID)
		argN++
	}
	if filters.NodeID != "" {
		conditions = append(conditions, fmt.Sprintf("node_id = $%d", argN))
		args = append(args, filters.NodeID)
		argN++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if cursor != "" {
		conditions = append(conditions, fmt.Sprintf("created_at < (SELECT created_at FROM executions WHERE id = $%d)", argN))
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
		return nil, false, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []model.Execution
	for rows.Next() {
		ex, err := scanExecution(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan execution: %w", err)
		}
		executions = append(executions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate executions: %w", err)
	}

	hasMore := len(executions) > limit
	if hasMore {
		executions = executions[:limit]
	}
	return executions, hasMore, nil
}

func (s *ExecutionService) SetCurrentStep(ctx context.Context, id string, stepID *string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE executions SET current_step = $1, updated_at = $2 WHERE id = $3`,
		stepID, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set execution %s current step: %w", id, err)
	}
	return nil
}

// AppendStepResult appends one attempt's result to the ordered list.
func (s *ExecutionService) AppendStepResult(ctx context.Context, id string, result model.StepResult) error {
	_, err := s.db.Exec(ctx,
		`UPDATE executions SET step_results = step_results || $1::jsonb, updated_at = $2 WHERE id = $3`,
		[]model.StepResult{result}, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("append step result to execution %s: %w", id, err)
	}
	return nil
}

// AppendAlert records an escalation tier attempt on the execution.
func (s *ExecutionService) AppendAlert(ctx context.Context, id string, alert model.ExecutionAlert) error {
	_, err := s.db.Exec(ctx,
		`UPDATE executions SET alerts = alerts || $1::jsonb, updated_at = $2 WHERE id = $3`,
		[]model.ExecutionAlert{alert}, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("append alert to execution %s: %w", id, err)
	}
	return nil
}

// Complete writes a terminal state. The guard on the running status makes it
// a no-op when another writer already terminated the execution; the returned
// bool reports whether this call applied.
func (s *ExecutionService) Complete(ctx context.Context, id, status, reason string, finishedAt time.Time, durationMS int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE executions
		 SET status = $1, completion_reason = $2, finished_at = $3, duration_ms = $4,
		     current_step = NULL, updated_at = $5
		 WHERE id = $6 AND status = $7`,
		status, reason, finishedAt, durationMS, time.Now(), id, model.ExecutionRunning,
	)
	if err != nil {
		return false, fmt.Errorf("complete execution %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus rewrites the status of an already-terminal execution. Used to
// flip failed to rolled_back once rollback jobs are queued.
func (s *ExecutionService) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE executions SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set execution %s status: %w", id, err)
	}
	return nil
}

// MarkInterrupted fails every execution still marked running. Called once at
// startup; running rows at that point belong to a dead process.
func (s *ExecutionService) MarkInterrupted(ctx context.Context, reason string) (int64, error) {
	now := time.Now()
	tag, err := s.db.Exec(ctx,
		`UPDATE executions
		 SET status = $1, completion_reason = $2, finished_at = $3,
		     duration_ms = (EXTRACT(EPOCH FROM ($3::timestamptz - started_at)) * 1000)::bigint,
		     current_step = NULL, updated_at = $3
		 WHERE status = $4`,
		model.ExecutionFailed, reason, now, model.ExecutionRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted executions: %w", err)
	}
	return tag.RowsAffected(), nil
}
