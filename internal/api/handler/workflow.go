package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/remediation"
)

type Workflow struct {
	svc *core.WorkflowService
}

func NewWorkflow(svc *core.WorkflowService) *Workflow {
	return &Workflow{svc: svc}
}

// checkWorkflow runs structural validation and converts the outcome into the
// API shape.
func checkWorkflow(wf *model.Workflow) response.ValidationResult {
	errs, warnings := remediation.Validate(wf)
	result := response.ValidationResult{Valid: len(errs) == 0, Warnings: warnings}
	for _, ve := range errs {
		result.Errors = append(result.Errors, ve.Error())
	}
	return result
}

// List godoc
//
//	@Summary		List workflows
//	@Tags			Workflows
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Workflow}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/workflows [get]
func (h *Workflow) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	workflows, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(workflows) > 0 {
		nextCursor = workflows[len(workflows)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, workflows, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Create a workflow
//	@Description	Creates a remediation workflow. Structurally invalid definitions (unknown transitions, cycles, bad step configs) are refused with the full error list.
//	@Tags			Workflows
//	@Param			body body request.CreateWorkflow true "Workflow definition"
//	@Success		201 {object} model.Workflow
//	@Failure		400 {object} response.ValidationResult
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/workflows [post]
func (h *Workflow) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateWorkflow
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	wf := &model.Workflow{
		Name:               req.Name,
		Description:        req.Description,
		StartStep:          req.StartStep,
		Steps:              req.Steps,
		EscalationPolicyID: req.EscalationPolicyID,
		RollbackEnabled:    req.RollbackEnabled,
		Enabled:            enabled,
	}

	if result := checkWorkflow(wf); !result.Valid {
		response.WriteJSON(w, http.StatusBadRequest, result)
		return
	}

	if err := h.svc.Create(r.Context(), wf); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, wf)
}

// Get godoc
//
//	@Summary		Get a workflow
//	@Tags			Workflows
//	@Param			id path string true "Workflow ID"
//	@Success		200 {object} model.Workflow
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/workflows/{id} [get]
func (h *Workflow) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	wf, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, wf)
}

// Update godoc
//
//	@Summary		Update a workflow
//	@Description	Partial update. The resulting definition is re-validated; running executions keep the version they were compiled from.
//	@Tags			Workflows
//	@Param			id path string true "Workflow ID"
//	@Param			body body request.UpdateWorkflow true "Workflow updates"
//	@Success		200 {object} model.Workflow
//	@Failure		400 {object} response.ValidationResult
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/workflows/{id} [put]
func (h *Workflow) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateWorkflow
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	wf, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Description != nil {
		wf.Description = *req.Description
	}
	if req.StartStep != nil {
		wf.StartStep = *req.StartStep
	}
	if req.Steps != nil {
		wf.Steps = req.Steps
	}
	if req.EscalationPolicyID != nil {
		wf.EscalationPolicyID = req.EscalationPolicyID
	}
	if req.RollbackEnabled != nil {
		wf.RollbackEnabled = *req.RollbackEnabled
	}
	if req.Enabled != nil {
		wf.Enabled = *req.Enabled
	}

	if result := checkWorkflow(wf); !result.Valid {
		response.WriteJSON(w, http.StatusBadRequest, result)
		return
	}

	if err := h.svc.Update(r.Context(), wf); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, wf)
}

// Delete godoc
//
//	@Summary		Delete a workflow
//	@Tags			Workflows
//	@Param			id path string true "Workflow ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/workflows/{id} [delete]
func (h *Workflow) Delete(w http.ResponseWriter, r *http.Request) {
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

// Validate godoc
//
//	@Summary		Validate a workflow definition
//	@Description	Dry-run structural validation. Always answers 200; the body reports errors and warnings without storing anything.
//	@Tags			Workflows
//	@Param			body body request.ValidateWorkflow true "Definition to check"
//	@Success		200 {object} response.ValidationResult
//	@Failure		400 {object} response.ErrorResponse
//	@Router			/workflows/validate [post]
func (h *Workflow) Validate(w http.ResponseWriter, r *http.Request) {
	var req request.ValidateWorkflow
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	wf := &model.Workflow{StartStep: req.StartStep, Steps: req.Steps}
	response.WriteJSON(w, http.StatusOK, checkWorkflow(wf))
}
