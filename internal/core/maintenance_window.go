package core

import (
	"context"
	"fmt"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const windowColumns = `id, name, description, cron_expr, duration_seconds, timezone, allowed_priorities, enabled, created_at, updated_at`

func scanWindow(row interface{ Scan(dest ...any) error }) (model.MaintenanceWindow, error) {
	var w model.MaintenanceWindow
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.CronExpr, &w.DurationSeconds,
		&w.Timezone, &w.AllowedPriorities, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	return w, nil
}

type MaintenanceWindowService struct {
	db DB
}

func NewMaintenanceWindowService(db DB) *MaintenanceWindowService {
	return &MaintenanceWindowService{db: db}
}

func (s *MaintenanceWindowService) Create(ctx context.Context, w *model.MaintenanceWindow) error {
	if w.ID == "" {
		w.ID = platform.NewID("mw")
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO maintenance_windows (id, name, description, cron_expr, duration_seconds,
		                                  timezone, allowed_priorities, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.Name, w.Description, w.CronExpr, w.DurationSeconds,
		w.Timezone, w.AllowedPriorities, w.Enabled, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create maintenance window: %w", err)
	}
	return nil
}

func (s *MaintenanceWindowService) GetByID(ctx context.Context, id string) (*model.MaintenanceWindow, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+windowColumns+` FROM maintenance_windows WHERE id = $1`, id,
	)
	w, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("get maintenance window %s: %w", id, err)
	}
	return &w, nil
}

// GetByIDs returns the windows for the given ids, preserving no particular
// order. Unknown ids are absent from the result.
func (s *MaintenanceWindowService) GetByIDs(ctx context.Context, ids []string) ([]model.MaintenanceWindow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+windowColumns+` FROM maintenance_windows WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get maintenance windows by ids: %w", err)
	}
	defer rows.Close()

	var windows []model.MaintenanceWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maintenance windows: %w", err)
	}
	return windows, nil
}

func (s *MaintenanceWindowService) List(ctx context.Context, limit int, cursor string) ([]model.MaintenanceWindow, bool, error) {
	query := `SELECT ` + windowColumns + ` FROM maintenance_windows`
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
		return nil, false, fmt.Errorf("list maintenance windows: %w", err)
	}
	defer rows.Close()

	var windows []model.MaintenanceWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan maintenance window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate maintenance windows: %w", err)
	}

	hasMore := len(windows) > limit
	if hasMore {
		windows = windows[:limit]
	}
	return windows, hasMore, nil
}

func (s *MaintenanceWindowService) Update(ctx context.Context, w *model.MaintenanceWindow) error {
	w.UpdatedAt = time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE maintenance_windows
		 SET name = $1, description = $2, cron_expr = $3, duration_seconds = $4,
		     timezone = $5, allowed_priorities = $6, enabled = $7, updated_at = $8
		 WHERE id = $9`,
		w.Name, w.Description, w.CronExpr, w.DurationSeconds,
		w.Timezone, w.AllowedPriorities, w.Enabled, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update maintenance window %s: %w", w.ID, err)
	}
	return nil
}

func (s *MaintenanceWindowService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM maintenance_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete maintenance window %s: %w", id, err)
	}
	return nil
}
