package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/remediation"
)

// RemediationEngine starts and cancels workflow executions. Implemented by
// remediation.Engine.
type RemediationEngine interface {
	Trigger(ctx context.Context, workflowID, nodeID, triggeredBy string, triggerContext map[string]string) (*model.Execution, error)
	Cancel(ctx context.Context, executionID string) error
}

type Execution struct {
	svc    *core.ExecutionService
	engine RemediationEngine
}

func NewExecution(svc *core.ExecutionService, engine RemediationEngine) *Execution {
	return &Execution{svc: svc, engine: engine}
}

// Trigger godoc
//
//	@Summary		Trigger a workflow execution
//	@Description	Starts a workflow against a node and returns 202 with the execution. Triggering a workflow that is already running on the node returns the running execution instead of starting a second one.
//	@Tags			Executions
//	@Param			body body request.TriggerExecution true "Trigger parameters"
//	@Success		202 {object} model.Execution
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/executions [post]
func (h *Execution) Trigger(w http.ResponseWriter, r *http.Request) {
	var req request.TriggerExecution
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "api"
	}

	execution, err := h.engine.Trigger(r.Context(), req.WorkflowID, req.NodeID, triggeredBy, req.Context)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.WriteError(w, http.StatusNotFound, "workflow not found")
		case errors.Is(err, remediation.ErrWorkflowDisabled):
			response.WriteError(w, http.StatusConflict, err.Error())
		default:
			var invalid *remediation.InvalidWorkflowError
			if errors.As(err, &invalid) {
				response.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	response.WriteJSON(w, http.StatusAccepted, execution)
}

// List godoc
//
//	@Summary		List executions
//	@Tags			Executions
//	@Param			workflow_id query string false "Filter by workflow"
//	@Param			node_id query string false "Filter by node"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Execution}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/executions [get]
func (h *Execution) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	q := r.URL.Query()
	filters := core.ExecutionFilters{
		WorkflowID: q.Get("workflow_id"),
		NodeID:     q.Get("node_id"),
		Status:     q.Get("status"),
	}

	executions, hasMore, err := h.svc.List(r.Context(), filters, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(executions) > 0 {
		nextCursor = executions[len(executions)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, executions, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get an execution
//	@Description	Returns the execution including its step results and escalation alerts.
//	@Tags			Executions
//	@Param			id path string true "Execution ID"
//	@Success		200 {object} model.Execution
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/executions/{id} [get]
func (h *Execution) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	execution, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, execution)
}

// Cancel godoc
//
//	@Summary		Cancel a running execution
//	@Description	Marks the execution cancelled, stops its advancement at the next step boundary and cancels any pending jobs it queued.
//	@Tags			Executions
//	@Param			id path string true "Execution ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/executions/{id}/cancel [post]
func (h *Execution) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.WriteError(w, http.StatusNotFound, "execution not found")
		case errors.Is(err, remediation.ErrNotRunning):
			response.WriteError(w, http.StatusConflict, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
