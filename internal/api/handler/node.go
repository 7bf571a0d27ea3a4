package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
)

type Node struct {
	svc *core.NodeService
}

func NewNode(svc *core.NodeService) *Node {
	return &Node{svc: svc}
}

// List godoc
//
//	@Summary		List nodes
//	@Description	Returns a paginated list of registered nodes, optionally filtered by availability and group membership.
//	@Tags			Nodes
//	@Param			online query bool false "Filter by availability"
//	@Param			group query string false "Filter by group membership"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Node}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/nodes [get]
func (h *Node) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)
	filters := core.NodeFilters{
		Online: request.QueryBoolPtr(r, "online"),
		Group:  r.URL.Query().Get("group"),
	}

	nodes, hasMore, err := h.svc.List(r.Context(), filters, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(nodes) > 0 {
		nextCursor = nodes[len(nodes)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, nodes, nextCursor, hasMore)
}

// Register godoc
//
//	@Summary		Register a node
//	@Description	Registers an execution target. New nodes start online with last_seen set to the registration time.
//	@Tags			Nodes
//	@Param			body body request.RegisterNode true "Node definition"
//	@Success		201 {object} model.Node
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/nodes [post]
func (h *Node) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterNode
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	node := &model.Node{
		Hostname: req.Hostname,
		Mesh:     req.Mesh,
		Groups:   req.Groups,
		Online:   true,
		LastSeen: &now,
	}

	if err := h.svc.Create(r.Context(), node); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, node)
}

// Get godoc
//
//	@Summary		Get a node
//	@Tags			Nodes
//	@Param			id path string true "Node ID"
//	@Success		200 {object} model.Node
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/nodes/{id} [get]
func (h *Node) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, node)
}

// SetStatus godoc
//
//	@Summary		Set node availability
//	@Description	Marks a node online or offline. Coming online stamps last_seen; offline nodes are skipped by target resolution.
//	@Tags			Nodes
//	@Param			id path string true "Node ID"
//	@Param			body body request.SetNodeStatus true "Desired availability"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/nodes/{id}/status [put]
func (h *Node) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SetNodeStatus
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.svc.SetOnline(r.Context(), id, *req.Online); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
