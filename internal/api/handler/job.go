package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
)

type Job struct {
	svc *core.JobService
}

func NewJob(svc *core.JobService) *Job {
	return &Job{svc: svc}
}

// List godoc
//
//	@Summary		List jobs
//	@Description	Returns a paginated list of jobs, optionally filtered by node, schedule, execution or status.
//	@Tags			Jobs
//	@Param			node_id query string false "Filter by node"
//	@Param			schedule_id query string false "Filter by schedule"
//	@Param			execution_id query string false "Filter by execution"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Job}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/jobs [get]
func (h *Job) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	q := r.URL.Query()
	filters := core.JobFilters{
		NodeID:      q.Get("node_id"),
		ScheduleID:  q.Get("schedule_id"),
		ExecutionID: q.Get("execution_id"),
		Status:      q.Get("status"),
	}

	jobs, hasMore, err := h.svc.List(r.Context(), filters, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(jobs) > 0 {
		nextCursor = jobs[len(jobs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, jobs, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get a job
//	@Tags			Jobs
//	@Param			id path string true "Job ID"
//	@Success		200 {object} model.Job
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/jobs/{id} [get]
func (h *Job) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, job)
}

// Cancel godoc
//
//	@Summary		Cancel a job
//	@Description	Marks a pending or running job cancelled. The node executing a running job owns actual interruption.
//	@Tags			Jobs
//	@Param			id path string true "Job ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/jobs/{id}/cancel [post]
func (h *Job) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if job.Status != model.JobPending && job.Status != model.JobRunning {
		response.WriteError(w, http.StatusConflict, "job already finished")
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Start marks a job running. Called by the node-side runner when it picks
// the job up.
func (h *Job) Start(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.svc.MarkRunning(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Result records a job's terminal outcome. Called by the node-side runner
// when the script exits. Results for already-terminal jobs are ignored.
func (h *Job) Result(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.JobResult
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.svc.Finish(r.Context(), id, req.Status, req.ExitCode, req.Stdout, req.Stderr); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
