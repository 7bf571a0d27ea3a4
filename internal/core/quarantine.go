package core

import (
	"context"
	"fmt"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const quarantineColumns = `id, node_id, active, reason, created_at, cleared_at, updated_at`

func scanQuarantine(row interface{ Scan(dest ...any) error }) (model.QuarantineRecord, error) {
	var q model.QuarantineRecord
	err := row.Scan(&q.ID, &q.NodeID, &q.Active, &q.Reason, &q.CreatedAt, &q.ClearedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	return q, nil
}

type QuarantineService struct {
	db DB
}

func NewQuarantineService(db DB) *QuarantineService {
	return &QuarantineService{db: db}
}

// Set quarantines a node: upserts the active record and cancels the node's
// still-pending jobs. Re-quarantining an already isolated node only updates
// the reason.
func (s *QuarantineService) Set(ctx context.Context, nodeID, reason string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx,
		`INSERT INTO quarantine_records (id, node_id, active, reason, created_at, updated_at)
		 VALUES ($1, $2, TRUE, $3, $4, $4)
		 ON CONFLICT (node_id)
		 DO UPDATE SET active = TRUE, reason = $3, cleared_at = NULL, updated_at = $4`,
		platform.NewID("quar"), nodeID, reason, now,
	)
	if err != nil {
		return fmt.Errorf("quarantine node %s: %w", nodeID, err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE jobs SET status = $1, finished_at = $2, updated_at = $2
		 WHERE node_id = $3 AND status = $4`,
		model.JobCancelled, now, nodeID, model.JobPending,
	)
	if err != nil {
		return fmt.Errorf("cancel pending jobs for quarantined node %s: %w", nodeID, err)
	}
	return nil
}

// Clear lifts a node's quarantine.
func (s *QuarantineService) Clear(ctx context.Context, nodeID string) error {
	now := time.Now()
	_, err := s.db.Exec(ctx,
		`UPDATE quarantine_records SET active = FALSE, cleared_at = $1, updated_at = $1
		 WHERE node_id = $2 AND active`,
		now, nodeID,
	)
	if err != nil {
		return fmt.Errorf("clear quarantine for node %s: %w", nodeID, err)
	}
	return nil
}

func (s *QuarantineService) IsQuarantined(ctx context.Context, nodeID string) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quarantine_records WHERE node_id = $1 AND active)`,
		nodeID,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("check quarantine for node %s: %w", nodeID, err)
	}
	return active, nil
}

// ActiveNodeIDs returns the ids of every currently quarantined node.
func (s *QuarantineService) ActiveNodeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT node_id FROM quarantine_records WHERE active ORDER BY node_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list quarantined nodes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quarantined node id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarantined nodes: %w", err)
	}
	return ids, nil
}

func (s *QuarantineService) List(ctx context.Context, activeOnly bool, limit int, cursor string) ([]model.QuarantineRecord, bool, error) {
	query := `SELECT ` + quarantineColumns + ` FROM quarantine_records`
	args := []any{}
	argIdx := 1

	if activeOnly {
		query += ` WHERE active`
	}
	if cursor != "" {
		if activeOnly {
			query += fmt.Sprintf(` AND id > $%d`, argIdx)
		} else {
			query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		}
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list quarantine records: %w", err)
	}
	defer rows.Close()

	var records []model.QuarantineRecord
	for rows.Next() {
		q, err := scanQuarantine(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan quarantine record: %w", err)
		}
		records = append(records, q)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate quarantine records: %w", err)
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}
	return records, hasMore, nil
}
