package model

import "time"

// Escalation tier types.
const (
	TierRunScript  = "run_script"
	TierWebhook    = "webhook"
	TierEmail      = "email"
	TierQuarantine = "quarantine"
	TierCustom     = "custom"
)

// EscalationPolicy is an ordered list of tiers tried until one succeeds.
type EscalationPolicy struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description,omitempty" db:"description"`
	Tiers       []EscalationTier `json:"tiers" db:"tiers"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// EscalationTier reuses the step config union for its per-type settings:
// run_script reads ScriptID/Variables, webhook reads URL/Method/Format,
// email reads To/Subject/Body, quarantine reads none, custom reads Action.
type EscalationTier struct {
	Type   string     `json:"type"`
	Name   string     `json:"name,omitempty"`
	Config TierConfig `json:"config"`
}

type TierConfig struct {
	ScriptID  string            `json:"script_id,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	URL       string            `json:"url,omitempty"`
	Method    string            `json:"method,omitempty"`
	Format    string            `json:"format,omitempty"`
	To        []string          `json:"to,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Action    string            `json:"action,omitempty"`
}
