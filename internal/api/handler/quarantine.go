package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
)

type Quarantine struct {
	svc   *core.QuarantineService
	nodes *core.NodeService
}

func NewQuarantine(svc *core.QuarantineService, nodes *core.NodeService) *Quarantine {
	return &Quarantine{svc: svc, nodes: nodes}
}

func (h *Quarantine) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	activeOnly := request.QueryBool(r, "active", false)

	records, hasMore, err := h.svc.List(r.Context(), activeOnly, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(records) > 0 {
		nextCursor = records[len(records)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, records, nextCursor, hasMore)
}

// Set quarantines a node. Pending jobs for the node are cancelled and new
// dispatch skips it until the quarantine is cleared.
func (h *Quarantine) Set(w http.ResponseWriter, r *http.Request) {
	nodeID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.QuarantineNode
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.nodes.GetByID(r.Context(), nodeID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.svc.Set(r.Context(), nodeID, req.Reason); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Quarantine) Clear(w http.ResponseWriter, r *http.Request) {
	nodeID, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.nodes.GetByID(r.Context(), nodeID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.svc.Clear(r.Context(), nodeID); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
