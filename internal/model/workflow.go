package model

import "time"

// Workflow step types.
const (
	StepScript    = "script"
	StepWebhook   = "webhook"
	StepEmail     = "email"
	StepDelay     = "delay"
	StepCondition = "condition"
)

// Retry backoff strategies.
const (
	BackoffExponential = "exponential"
	BackoffLinear      = "linear"
)

// Webhook payload formats.
const (
	WebhookFormatGeneric = "generic"
	WebhookFormatSlack   = "slack"
)

// Workflow is a directed graph of remediation steps. The stored shape is
// validated and compiled before any execution runs it.
type Workflow struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description,omitempty" db:"description"`
	StartStep          string    `json:"start_step" db:"start_step"`
	Steps              []Step    `json:"steps" db:"steps"`
	EscalationPolicyID *string   `json:"escalation_policy_id,omitempty" db:"escalation_policy_id"`
	RollbackEnabled    bool      `json:"rollback_enabled" db:"rollback_enabled"`
	Enabled            bool      `json:"enabled" db:"enabled"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Step transitions are split by type: action steps (script, webhook, email,
// delay) use on_success/on_failure, condition steps use on_true/on_false.
type Step struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	Type             string       `json:"type"`
	Config           StepConfig   `json:"config"`
	TimeoutSeconds   int          `json:"timeout_seconds,omitempty"`
	OnSuccess        string       `json:"on_success,omitempty"`
	OnFailure        string       `json:"on_failure,omitempty"`
	OnTrue           string       `json:"on_true,omitempty"`
	OnFalse          string       `json:"on_false,omitempty"`
	Retry            *RetryPolicy `json:"retry,omitempty"`
	RollbackScriptID string       `json:"rollback_script_id,omitempty"`
}

// StepConfig carries the union of per-type settings; only the fields for the
// step's declared type are meaningful.
type StepConfig struct {
	// script
	ScriptID  string            `json:"script_id,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`

	// webhook
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Format  string            `json:"format,omitempty"`

	// email
	To       []string `json:"to,omitempty"`
	Subject  string   `json:"subject,omitempty"`
	Body     string   `json:"body,omitempty"`
	Template string   `json:"template,omitempty"`

	// delay
	DelaySeconds int `json:"delay_seconds,omitempty"`

	// condition
	Condition *Condition `json:"condition,omitempty"`
}

type RetryPolicy struct {
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	Backoff      string `json:"backoff,omitempty"`
	DelaySeconds int    `json:"delay_seconds,omitempty"`
}
