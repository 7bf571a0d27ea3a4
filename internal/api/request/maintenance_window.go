package request

type CreateMaintenanceWindow struct {
	Name              string   `json:"name" validate:"required,slug"`
	Description       string   `json:"description" validate:"omitempty,max=1024"`
	CronExpr          string   `json:"cron_expr" validate:"required,cron"`
	DurationSeconds   int      `json:"duration_seconds" validate:"required,min=1,max=604800"`
	Timezone          string   `json:"timezone" validate:"omitempty,timezone"`
	AllowedPriorities []string `json:"allowed_priorities" validate:"omitempty,dive,oneof=critical high normal low"`
	Enabled           *bool    `json:"enabled"`
}

type UpdateMaintenanceWindow struct {
	Name              *string  `json:"name" validate:"omitempty,slug"`
	Description       *string  `json:"description" validate:"omitempty,max=1024"`
	CronExpr          *string  `json:"cron_expr" validate:"omitempty,cron"`
	DurationSeconds   *int     `json:"duration_seconds" validate:"omitempty,min=1,max=604800"`
	Timezone          *string  `json:"timezone" validate:"omitempty,timezone"`
	AllowedPriorities []string `json:"allowed_priorities" validate:"omitempty,dive,oneof=critical high normal low"`
	Enabled           *bool    `json:"enabled"`
}
