package model

import "time"

// MaintenanceWindow is a recurring blackout interval. The cron expression
// yields the window's start instants; the window covers
// [start, start+duration] in its own timezone.
type MaintenanceWindow struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Description       string    `json:"description,omitempty" db:"description"`
	CronExpr          string    `json:"cron_expr" db:"cron_expr"`
	DurationSeconds   int       `json:"duration_seconds" db:"duration_seconds"`
	Timezone          string    `json:"timezone" db:"timezone"`
	AllowedPriorities []string  `json:"allowed_priorities,omitempty" db:"allowed_priorities"`
	Enabled           bool      `json:"enabled" db:"enabled"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
