package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/verdane/fleetops/internal/api/request"
	"github.com/verdane/fleetops/internal/api/response"
	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
)

type EscalationPolicy struct {
	svc *core.EscalationPolicyService
}

func NewEscalationPolicy(svc *core.EscalationPolicyService) *EscalationPolicy {
	return &EscalationPolicy{svc: svc}
}

// validateTiers rejects tiers whose type is unknown or whose config lacks
// the fields that type reads.
func validateTiers(tiers []model.EscalationTier) error {
	for i, tier := range tiers {
		switch tier.Type {
		case model.TierRunScript:
			if tier.Config.ScriptID == "" {
				return fmt.Errorf("tier %d: run_script tier requires script_id", i)
			}
		case model.TierWebhook:
			u, err := url.Parse(tier.Config.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("tier %d: webhook tier requires an http(s) url", i)
			}
		case model.TierEmail:
			if len(tier.Config.To) == 0 {
				return fmt.Errorf("tier %d: email tier requires recipients", i)
			}
		case model.TierQuarantine, model.TierCustom:
		default:
			return fmt.Errorf("tier %d: unknown tier type %q", i, tier.Type)
		}
	}
	return nil
}

func (h *EscalationPolicy) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	policies, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(policies) > 0 {
		nextCursor = policies[len(policies)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, policies, nextCursor, hasMore)
}

func (h *EscalationPolicy) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateEscalationPolicy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateTiers(req.Tiers); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy := &model.EscalationPolicy{
		Name:        req.Name,
		Description: req.Description,
		Tiers:       req.Tiers,
	}

	if err := h.svc.Create(r.Context(), policy); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, policy)
}

func (h *EscalationPolicy) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *EscalationPolicy) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateEscalationPolicy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Name != nil {
		policy.Name = *req.Name
	}
	if req.Description != nil {
		policy.Description = *req.Description
	}
	if req.Tiers != nil {
		if err := validateTiers(req.Tiers); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		policy.Tiers = req.Tiers
	}

	if err := h.svc.Update(r.Context(), policy); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, policy)
}

func (h *EscalationPolicy) Delete(w http.ResponseWriter, r *http.Request) {
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
