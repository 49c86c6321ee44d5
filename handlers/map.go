package handlers

import (
	"net/http"
	"strconv"

	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/utils"
)

// GET /api/maps?archived=true
func (h *Handler) ListMaps(w http.ResponseWriter, r *http.Request) {
	includeArchived := false
	if v := r.URL.Query().Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "archived must be a boolean")
			return
		}
		includeArchived = b
	}
	maps, err := h.maps.ListMaps(r.Context(), principal(r), includeArchived)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, maps)
}

// POST /api/maps
func (h *Handler) CreateMap(w http.ResponseWriter, r *http.Request) {
	var in models.MapInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.maps.CreateMap(r.Context(), principal(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, m)
}

// GET /api/maps/{mapID}
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.maps.GetMap(r.Context(), principal(r), r.PathValue("mapID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, m)
}

// PUT /api/maps/{mapID}
func (h *Handler) UpdateMap(w http.ResponseWriter, r *http.Request) {
	var in models.MapInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.maps.UpdateMap(r.Context(), principal(r), r.PathValue("mapID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, m)
}

// DELETE /api/maps/{mapID}
func (h *Handler) DeleteMap(w http.ResponseWriter, r *http.Request) {
	if err := h.maps.DeleteMap(r.Context(), principal(r), r.PathValue("mapID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/maps/{mapID}/duplicate
func (h *Handler) DuplicateMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.maps.DuplicateMap(r.Context(), principal(r), r.PathValue("mapID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, m)
}

// GET /api/maps/{mapID}/matrix
func (h *Handler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	mx, err := h.maps.Matrix(r.Context(), principal(r), r.PathValue("mapID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, mx)
}
