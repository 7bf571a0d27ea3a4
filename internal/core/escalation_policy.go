package core

import (
	"context"
	"fmt"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const policyColumns = `id, name, description, tiers, created_at, updated_at`

func scanPolicy(row interface{ Scan(dest ...any) error }) (model.EscalationPolicy, error) {
	var p model.EscalationPolicy
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Tiers, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	return p, nil
}

type EscalationPolicyService struct {
	db DB
}

func NewEscalationPolicyService(db DB) *EscalationPolicyService {
	return &EscalationPolicyService{db: db}
}

func (s *EscalationPolicyService) Create(ctx context.Context, p *model.EscalationPolicy) error {
	if p.ID == "" {
		p.ID = platform.NewID("esc")
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO escalation_policies (id, name, description, tiers, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Description, p.Tiers, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create escalation policy: %w", err)
	}
	return nil
}

func (s *EscalationPolicyService) GetByID(ctx context.Context, id string) (*model.EscalationPolicy, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM escalation_policies WHERE id = $1`, id,
	)
	p, err := scanPolicy(row)
	if err != nil {
		return nil, fmt.Errorf("get escalation policy %s: %w", id, err)
	}
	return &p, nil
}

func (s *EscalationPolicyService) List(ctx context.Context, limit int, cursor string) ([]model.EscalationPolicy, bool, error) {
	query := `SELECT ` + policyColumns + ` FROM escalation_policies`
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
		return nil, false, fmt.Errorf("list escalation policies: %w", err)
	}
	defer rows.Close()

	var policies []model.EscalationPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan escalation policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate escalation policies: %w", err)
	}

	hasMore := len(policies) > limit
	if hasMore {
		policies = policies[:limit]
	}
	return policies, hasMore, nil
}

func (s *EscalationPolicyService) Update(ctx context.Context, p *model.EscalationPolicy) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE escalation_policies
		 SET name = $1, description = $2, tiers = $3, updated_at = $4
		 WHERE id = $5`,
		p.Name, p.Description, p.Tiers, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update escalation policy %s: %w", p.ID, err)
	}
	return nil
}

func (s *EscalationPolicyService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM escalation_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete escalation policy %s: %w", id, err)
	}
	return nil
}
