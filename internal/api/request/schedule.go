package request

import "github.com/verdane/fleetops/internal/model"

type CreateSchedule struct {
	Name            string             `json:"name" validate:"required,slug"`
	Description     string             `json:"description" validate:"omitempty,max=1024"`
	CronExpr        string             `json:"cron_expr" validate:"required,cron"`
	Timezone        string             `json:"timezone" validate:"omitempty,timezone"`
	ScriptID        string             `json:"script_id" validate:"required"`
	Variables       map[string]string  `json:"variables"`
	Targets         model.TargetSet    `json:"targets"`
	Priority        string             `json:"priority" validate:"omitempty,oneof=critical high normal low"`
	Concurrency     ConcurrencyLimits  `json:"concurrency"`
	WindowIDs       []string           `json:"window_ids"`
	DependsOn       []string           `json:"depends_on"`
	JitterSeconds   int                `json:"jitter_seconds" validate:"omitempty,min=0,max=3600"`
	MissedJobPolicy string             `json:"missed_job_policy" validate:"omitempty,oneof=skip immediate queue"`
	Enabled         *bool              `json:"enabled"`
}

type UpdateSchedule struct {
	Name            *string            `json:"name" validate:"omitempty,slug"`
	Description     *string            `json:"description" validate:"omitempty,max=1024"`
	CronExpr        *string            `json:"cron_expr" validate:"omitempty,cron"`
	Timezone        *string            `json:"timezone" validate:"omitempty,timezone"`
	ScriptID        *string            `json:"script_id" validate:"omitempty"`
	Variables       map[string]string  `json:"variables"`
	Targets         *model.TargetSet   `json:"targets"`
	Priority        *string            `json:"priority" validate:"omitempty,oneof=critical high normal low"`
	Concurrency     *ConcurrencyLimits `json:"concurrency"`
	WindowIDs       []string           `json:"window_ids"`
	DependsOn       []string           `json:"depends_on"`
	JitterSeconds   *int               `json:"jitter_seconds" validate:"omitempty,min=0,max=3600"`
	MissedJobPolicy *string            `json:"missed_job_policy" validate:"omitempty,oneof=skip immediate queue"`
}

type ConcurrencyLimits struct {
	MaxPerNode int `json:"max_per_node" validate:"omitempty,min=0"`
	MaxPerMesh int `json:"max_per_mesh" validate:"omitempty,min=0"`
	MaxGlobal  int `json:"max_global" validate:"omitempty,min=0"`
}

func (c ConcurrencyLimits) Model() model.ConcurrencyLimits {
	return model.ConcurrencyLimits{
		MaxPerNode: c.MaxPerNode,
		MaxPerMesh: c.MaxPerMesh,
		MaxGlobal:  c.MaxGlobal,
	}
}
