package handler

import (
	"net/http"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
)

type Alert struct {
	svc *core.AlertService
}

func NewAlert(svc *core.AlertService) *Alert {
	return &Alert{svc: svc}
}

func (h *Alert) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	q := r.URL.Query()
	filters := core.AlertFilters{
		Severity: q.Get("severity"),
		Source:   q.Get("source"),
		NodeID:   q.Get("node_id"),
	}

	alerts, hasMore, err := h.svc.List(r.Context(), filters, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(alerts) > 0 {
		nextCursor = alerts[len(alerts)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, alerts, nextCursor, hasMore)
}
