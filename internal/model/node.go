package model

import "time"

// Node is the directory view consumed by target resolution. The agent plane
// owning the node lifecycle maintains these rows.
type Node struct {
	ID        string     `json:"id" db:"id"`
	Hostname  string     `json:"hostname" db:"hostname"`
	Mesh      string     `json:"mesh" db:"mesh"`
	Groups    []string   `json:"groups,omitempty" db:"groups"`
	Online    bool       `json:"online" db:"online"`
	LastSeen  *time.Time `json:"last_seen,omitempty" db:"last_seen"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
