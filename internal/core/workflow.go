package core

import (
	"context"
	"fmt"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const workflowColumns = `id, name, description, start_step, steps, escalation_policy_id, rollback_enabled, enabled, created_at, updated_at`

func scanWorkflow(row interface{ Scan(dest ...any) error }) (model.Workflow, error) {
	var wf model.Workflow
	err := row.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.StartStep, &wf.Steps,
		&wf.EscalationPolicyID, &wf.RollbackEnabled, &wf.Enabled,
		&wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return wf, err
	}
	return wf, nil
}

type WorkflowService struct {
	db DB
}

func NewWorkflowService(db DB) *WorkflowService {
	return &WorkflowService{db: db}
}

func (s *WorkflowService) Create(ctx context.Context, wf *model.Workflow) error {
	if wf.ID == "" {
		wf.ID = platform.NewID("wf")
	}
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO workflows (id, name, description, start_step, steps,
		                        escalation_policy_id, rollback_enabled, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		wf.ID, wf.Name, wf.Description, wf.StartStep, wf.Steps,
		wf.EscalationPolicyID, wf.RollbackEnabled, wf.Enabled, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (s *WorkflowService) GetByID(ctx context.Context, id string) (*model.Workflow, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id,
	)
	wf, err := scanWorkflow(row)
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}
	return &wf, nil
}

func (s *WorkflowService) List(ctx context.Context, limit int, cursor string) ([]model.Workflow, bool, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []model.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate workflows: %w", err)
	}

	hasMore := len(workflows) > limit
	if hasMore {
		workflows = workflows[:limit]
	}
	return workflows, hasMore, nil
}

func (s *WorkflowService) Update(ctx context.Context, wf *model.Workflow) error {
	wf.UpdatedAt = time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE workflows
		 SET name = $1, description = $2, start_step = $3, steps = $4,
		     escalation_policy_id = $5, rollback_enabled = $6, enabled = $7, updated_at = $8
		 WHERE id = $9`,
		wf.Name, wf.Description, wf.StartStep, wf.Steps,
		wf.EscalationPolicyID, wf.RollbackEnabled, wf.Enabled, wf.UpdatedAt, wf.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", wf.ID, err)
	}
	return nil
}

func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	return nil
}
