package request

import "github.com/verdane/fleetops/internal/model"

type CreateEscalationPolicy struct {
	Name        string                 `json:"name" validate:"required,slug"`
	Description string                 `json:"description" validate:"omitempty,max=1024"`
	Tiers       []model.EscalationTier `json:"tiers" validate:"required,min=1"`
}

type UpdateEscalationPolicy struct {
	Name        *string                `json:"name" validate:"omitempty,slug"`
	Description *string                `json:"description" validate:"omitempty,max=1024"`
	Tiers       []model.EscalationTier `json:"tiers" validate:"omitempty,min=1"`
}
