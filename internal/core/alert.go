package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const alertColumns = `id, severity, source, execution_id, node_id, message, metadata, created_at`

func scanAlert(row interface{ Scan(dest ...any) error }) (model.Alert, error) {
	var a model.Alert
	err := row.Scan(&a.ID, &a.Severity, &a.Source, &a.ExecutionID, &a.NodeID,
		&a.Message, &a.Metadata, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	return a, nil
}

type AlertService struct {
	db DB
}

func NewAlertService(db DB) *AlertService {
	return &AlertService{db: db}
}

func (s *AlertService) Create(ctx context.Context, a *model.Alert) error {
	if a.ID == "" {
		a.ID = platform.NewID("alert")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO alerts (id, severity, source, execution_id, node_id, message, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Severity, a.Source, a.ExecutionID, a.NodeID, a.Message, a.Metadata, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

type AlertFilters struct {
	Severity string
	Source   string
	NodeID   string
}

func (s *AlertService) List(ctx context.Context, filters AlertFilters, limit int, cursor string) ([]model.Alert, bool, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`

	var conditions []string
	var args []any
	argN := 1

	if filters.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", argN))
		args = append(args, filters.Severity)
		argN++
	}
	if filters.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argN))
		args = append(args, filters.Source)
		argN++
	}
	if filters.NodeID != "" {
		conditions = append(conditions, fmt.Sprintf("node_id = $%d", argN))
		args = append(args, filters.NodeID)
		argN++
	}
	if cursor != "" {
		conditions = append(conditions, fmt.Sprintf("created_at < (SELECT created_at FROM alerts WHERE id = $%d)", argN))
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
		return nil, false, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate alerts: %w", err)
	}

	hasMore := len(alerts) > limit
	if hasMore {
		alerts = alerts[:limit]
	}
	return alerts, hasMore, nil
}
