package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/scheduler"
)

// ScheduleRunner arms and disarms live cron loops and fires schedules on
// demand. Implemented by scheduler.Scheduler.
type ScheduleRunner interface {
	Arm(schedule *model.Schedule) error
	Disarm(scheduleID string)
	TriggerNow(ctx context.Context, scheduleID string) (int, error)
}

type Schedule struct {
	svc    *core.ScheduleService
	runner ScheduleRunner
}

func NewSchedule(svc *core.ScheduleService, runner ScheduleRunner) *Schedule {
	return &Schedule{svc: svc, runner: runner}
}

// List godoc
//
//	@Summary		List schedules
//	@Description	Returns a paginated list of schedules, optionally filtered by enabled state and priority.
//	@Tags			Schedules
//	@Param			enabled query bool false "Filter by enabled state"
//	@Param			priority query string false "Filter by priority"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Schedule}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/schedules [get]
func (h *Schedule) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	filters := core.ScheduleFilters{
		Enabled:  request.QueryBoolPtr(r, "enabled"),
		Priority: r.URL.Query().Get("priority"),
	}

	schedules, hasMore, err := h.svc.List(r.Context(), filters, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(schedules) > 0 {
		nextCursor = schedules[len(schedules)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, schedules, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Create a schedule
//	@Description	Creates a cron schedule. Enabled schedules are armed immediately and report their first fire instant as next_run.
//	@Tags			Schedules
//	@Param			body body request.CreateSchedule true "Schedule definition"
//	@Success		201 {object} model.Schedule
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/schedules [post]
func (h *Schedule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sched := &model.Schedule{
		Name:            req.Name,
		Description:     req.Description,
		CronExpr:        req.CronExpr,
		Timezone:        req.Timezone,
		ScriptID:        req.ScriptID,
		Variables:       req.Variables,
		Targets:         req.Targets,
		Priority:        req.Priority,
		Concurrency:     req.Concurrency.Model(),
		WindowIDs:       req.WindowIDs,
		DependsOn:       req.DependsOn,
		JitterSeconds:   req.JitterSeconds,
		MissedJobPolicy: req.MissedJobPolicy,
		Enabled:         enabled,
	}
	if sched.Timezone == "" {
		sched.Timezone = "UTC"
	}
	if sched.Priority == "" {
		sched.Priority = model.PriorityNormal
	}
	if sched.MissedJobPolicy == "" {
		sched.MissedJobPolicy = model.MissedJobSkip
	}

	// The arm loop refreshes next_run on every iteration. Seeding it here
	// makes the stored row meaningful before the first tick.
	if next, err := scheduler.ComputeNextRun(sched, time.Now()); err == nil {
		sched.NextRun = next
	}

	if err := h.svc.Create(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if sched.Enabled {
		if err := h.runner.Arm(sched); err != nil {
			response.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	response.WriteJSON(w, http.StatusCreated, sched)
}

// Get godoc
//
//	@Summary		Get a schedule
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Success		200 {object} model.Schedule
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/schedules/{id} [get]
func (h *Schedule) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

// Update godoc
//
//	@Summary		Update a schedule
//	@Description	Partial update of a schedule definition. An enabled schedule is re-armed so expression or timezone changes take effect at once.
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Param			body body request.UpdateSchedule true "Schedule updates"
//	@Success		200 {object} model.Schedule
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/schedules/{id} [put]
func (h *Schedule) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Name != nil {
		sched.Name = *req.Name
	}
	if req.Description != nil {
		sched.Description = *req.Description
	}
	if req.CronExpr != nil {
		sched.CronExpr = *req.CronExpr
	}
	if req.Timezone != nil {
		sched.Timezone = *req.Timezone
	}
	if req.ScriptID != nil {
		sched.ScriptID = *req.ScriptID
	}
	if req.Variables != nil {
		sched.Variables = req.Variables
	}
	if req.Targets != nil {
		sched.Targets = *req.Targets
	}
	if req.Priority != nil {
		sched.Priority = *req.Priority
	}
	if req.Concurrency != nil {
		sched.Concurrency = req.Concurrency.Model()
	}
	if req.WindowIDs != nil {
		sched.WindowIDs = req.WindowIDs
	}
	if req.DependsOn != nil {
		sched.DependsOn = req.DependsOn
	}
	if req.JitterSeconds != nil {
		sched.JitterSeconds = *req.JitterSeconds
	}
	if req.MissedJobPolicy != nil {
		sched.MissedJobPolicy = *req.MissedJobPolicy
	}

	if next, err := scheduler.ComputeNextRun(sched, time.Now()); err == nil {
		sched.NextRun = next
	}

	if err := h.svc.UpdateDefinition(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if sched.Enabled {
		if err := h.runner.Arm(sched); err != nil {
			response.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

// Delete godoc
//
//	@Summary		Delete a schedule
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/schedules/{id} [delete]
func (h *Schedule) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.runner.Disarm(id)
	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Pause godoc
//
//	@Summary		Pause a schedule
//	@Description	Disables the schedule and stops its timer loop. Running jobs are not touched.
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/schedules/{id}/pause [post]
func (h *Schedule) Pause(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	h.runner.Disarm(id)
	if err := h.svc.SetEnabled(r.Context(), id, false, nil); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resume godoc
//
//	@Summary		Resume a paused schedule
//	@Description	Re-enables the schedule and arms its timer loop. The next fire is computed from now, missed fires are not replayed.
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/schedules/{id}/resume [post]
func (h *Schedule) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	var next *time.Time
	if n, err := scheduler.ComputeNextRun(sched, time.Now()); err == nil {
		next = n
	}
	if err := h.svc.SetEnabled(r.Context(), id, true, next); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sched.Enabled = true
	if err := h.runner.Arm(sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RunNow godoc
//
//	@Summary		Run a schedule immediately
//	@Description	Projects the schedule into jobs right away, bypassing maintenance windows, dependencies and jitter. Concurrency limits and quarantine still apply.
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Success		200 {object} map[string]int
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/schedules/{id}/run [post]
func (h *Schedule) RunNow(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	created, err := h.runner.TriggerNow(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]int{"jobs_created": created})
}

// Preview godoc
//
//	@Summary		Preview upcoming fire times
//	@Description	Returns the next N fire instants for the schedule in its configured timezone, before jitter.
//	@Tags			Schedules
//	@Param			id path string true "Schedule ID"
//	@Param			count query int false "Number of instants" default(5)
//	@Success		200 {object} map[string][]time.Time
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/schedules/{id}/preview [get]
func (h *Schedule) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	count := request.QueryInt(r, "count", 5)
	if count < 1 {
		count = 1
	}
	if count > 20 {
		count = 20
	}

	sched, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	times, err := scheduler.ComputeNext(sched, time.Now(), count)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string][]time.Time{"next_runs": times})
}
