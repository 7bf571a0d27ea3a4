package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

const nodeColumns = `id, hostname, mesh, groups, online, last_seen, created_at, updated_at`

func scanNode(row interface{ Scan(dest ...any) error }) (model.Node, error) {
	var n model.Node
	err := row.Scan(&n.ID, &n.Hostname, &n.Mesh, &n.Groups, &n.Online,
		&n.LastSeen, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return n, err
	}
	return n, nil
}

type NodeService struct {
	db DB
}

func NewNodeService(db DB) *NodeService {
	return &NodeService{db: db}
}

func (s *NodeService) Create(ctx context.Context, node *model.Node) error {
	if node.ID == "" {
		node.ID = platform.NewID("node")
	}
	now := time.Now()
	node.CreatedAt = now
	node.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO nodes (id, hostname, mesh, groups, online, last_seen, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		node.ID, node.Hostname, node.Mesh, node.Groups, node.Online,
		node.LastSeen, node.CreatedAt, node.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

func (s *NodeService) GetByID(ctx context.Context, id string) (*model.Node, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id,
	)
	n, err := scanNode(row)
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return &n, nil
}

type NodeFilters struct {
	Online *bool
	Group  string
}

func (s *NodeService) List(ctx context.Context, filters NodeFilters, limit int, cursor string) ([]model.Node, bool, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes`

	var conditions []string
	var args []any
	argN := 1

	if filters.Online != nil {
		conditions = append(conditions, fmt.Sprintf("online = $%d", argN))
		args = append(args, *filters.Online)
		argN++
	}
	if filters.Group != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(groups)", argN))
		args = append(args, filters.Group)
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
		return nil, false, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate nodes: %w", err)
	}

	hasMore := len(nodes) > limit
	if hasMore {
		nodes = nodes[:limit]
	}
	return nodes, hasMore, nil
}

// ResolveTargets returns the online nodes matching a target set: explicit ids
// unioned with members of the named groups.
func (s *NodeService) ResolveTargets(ctx context.Context, targets model.TargetSet) ([]model.Node, error) {
	if len(targets.NodeIDs) == 0 && len(targets.Groups) == 0 {
		return nil, nil
	}

	nodeIDs := targets.NodeIDs
	if nodeIDs == nil {
		nodeIDs = []string{}
	}
	groups := targets.Groups
	if groups == nil {
		groups = []string{}
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE online AND (id = ANY($1) OR groups && $2)
		 ORDER BY id`,
		nodeIDs, groups,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve target nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// SetOnline flips a node's availability and stamps last_seen when it comes up.
func (s *NodeService) SetOnline(ctx context.Context, id string, online bool) error {
	now := time.Now()
	var lastSeen *time.Time
	if online {
		lastSeen = &now
	}
	_, err := s.db.Exec(ctx,
		`UPDATE nodes SET online = $1, last_seen = COALESCE($2, last_seen), updated_at = $3 WHERE id = $4`,
		online, lastSeen, now, id,
	)
	if err != nil {
		return fmt.Errorf("set node %s online: %w", id, err)
	}
	return nil
}
