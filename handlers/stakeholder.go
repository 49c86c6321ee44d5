package handlers

import (
	"net/http"

	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/utils"
)

// POST /api/maps/{mapID}/stakeholders
func (h *Handler) AddStakeholder(w http.ResponseWriter, r *http.Request) {
	var in models.StakeholderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.maps.AddStakeholder(r.Context(), principal(r), r.PathValue("mapID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, s)
}

// PUT /api/maps/{mapID}/stakeholders/{stakeholderID}
func (h *Handler) UpdateStakeholder(w http.ResponseWriter, r *http.Request) {
	var in models.StakeholderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.maps.UpdateStakeholder(r.Context(), principal(r), r.PathValue("mapID"), r.PathValue("stakeholderID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, s)
}

// DELETE /api/maps/{mapID}/stakeholders/{stakeholderID}
func (h *Handler) RemoveStakeholder(w http.ResponseWriter, r *http.Request) {
	err := h.maps.RemoveStakeholder(r.Context(), principal(r), r.PathValue("mapID"), r.PathValue("stakeholderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/maps/{mapID}/stakeholders/{stakeholderID}/interactions
func (h *Handler) LogInteraction(w http.ResponseWriter, r *http.Request) {
	var in models.InteractionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	i, err := h.maps.LogInteraction(r.Context(), principal(r), r.PathValue("mapID"), r.PathValue("stakeholderID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, i)
}

// DELETE /api/maps/{mapID}/stakeholders/{stakeholderID}/interactions/{interactionID}
func (h *Handler) RemoveInteraction(w http.ResponseWriter, r *http.Request) {
	err := h.maps.RemoveInteraction(r.Context(), principal(r),
		r.PathValue("mapID"), r.PathValue("stakeholderID"), r.PathValue("interactionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
