package request

import "github.com/verdane/fleetops/internal/model"

// Workflow steps arrive in their stored JSON shape; structural validation
// happens in the remediation compiler, not in field tags.
type CreateWorkflow struct {
	Name               string       `json:"name" validate:"required,slug"`
	Description        string       `json:"description" validate:"omitempty,max=1024"`
	StartStep          string       `json:"start_step" validate:"required"`
	Steps              []model.Step `json:"steps" validate:"required"`
	EscalationPolicyID *string      `json:"escalation_policy_id"`
	RollbackEnabled    bool         `json:"rollback_enabled"`
	Enabled            *bool        `json:"enabled"`
}

type UpdateWorkflow struct {
	Name               *string      `json:"name" validate:"omitempty,slug"`
	Description        *string      `json:"description" validate:"omitempty,max=1024"`
	StartStep          *string      `json:"start_step"`
	Steps              []model.Step `json:"steps"`
	EscalationPolicyID *string      `json:"escalation_policy_id"`
	RollbackEnabled    *bool        `json:"rollback_enabled"`
	Enabled            *bool        `json:"enabled"`
}

// ValidateWorkflow carries a definition to check without storing it.
type ValidateWorkflow struct {
	StartStep string       `json:"start_step" validate:"required"`
	Steps     []model.Step `json:"steps" validate:"required"`
}
