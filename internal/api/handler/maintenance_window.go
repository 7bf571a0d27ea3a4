package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
)

type MaintenanceWindow struct {
	svc *core.MaintenanceWindowService
}

func NewMaintenanceWindow(svc *core.MaintenanceWindowService) *MaintenanceWindow {
	return &MaintenanceWindow{svc: svc}
}

func (h *MaintenanceWindow) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	windows, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(windows) > 0 {
		nextCursor = windows[len(windows)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, windows, nextCursor, hasMore)
}

func (h *MaintenanceWindow) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateMaintenanceWindow
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	window := &model.MaintenanceWindow{
		Name:              req.Name,
		Description:       req.Description,
		CronExpr:          req.CronExpr,
		DurationSeconds:   req.DurationSeconds,
		Timezone:          req.Timezone,
		AllowedPriorities: req.AllowedPriorities,
		Enabled:           enabled,
	}
	if window.Timezone == "" {
		window.Timezone = "UTC"
	}

	if err := h.svc.Create(r.Context(), window); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, window)
}

func (h *MaintenanceWindow) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, window)
}

func (h *MaintenanceWindow) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateMaintenanceWindow
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Name != nil {
		window.Name = *req.Name
	}
	if req.Description != nil {
		window.Description = *req.Description
	}
	if req.CronExpr != nil {
		window.CronExpr = *req.CronExpr
	}
	if req.DurationSeconds != nil {
		window.DurationSeconds = *req.DurationSeconds
	}
	if req.Timezone != nil {
		window.Timezone = *req.Timezone
	}
	if req.AllowedPriorities != nil {
		window.AllowedPriorities = req.AllowedPriorities
	}
	if req.Enabled != nil {
		window.Enabled = *req.Enabled
	}

	if err := h.svc.Update(r.Context(), window); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, window)
}

func (h *MaintenanceWindow) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
