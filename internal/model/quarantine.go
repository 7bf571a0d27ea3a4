package model

import "time"

// QuarantineRecord isolates a node: while active, the node is excluded from
// new dispatch and its pending jobs are cancelled.
type QuarantineRecord struct {
	ID        string     `json:"id" db:"id"`
	NodeID    string     `json:"node_id" db:"node_id"`
	Active    bool       `json:"active" db:"active"`
	Reason    string     `json:"reason" db:"reason"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ClearedAt *time.Time `json:"cleared_at,omitempty" db:"cleared_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
