package model

import "time"

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert is a persisted administrator-facing record. Escalation exhaustion
// always produces one; it is never only logged.
type Alert struct {
	ID          string            `json:"id" db:"id"`
	Severity    string            `json:"severity" db:"severity"`
	Source      string            `json:"source" db:"source"`
	ExecutionID *string           `json:"execution_id,omitempty" db:"execution_id"`
	NodeID      *string           `json:"node_id,omitempty" db:"node_id"`
	Message     string            `json:"message" db:"message"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}
