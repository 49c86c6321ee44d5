package handlers

import (
	"net/http"
	"strings"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/middleware"
	"github.com/andrewpaige1/stakemap/utils"
)

// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), principal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

// POST /api/me/claim-guest
// The guest id comes from the body or, failing that, the guest header.
func (h *Handler) ClaimGuest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GuestID string `json:"guestId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.GuestID == "" {
		body.GuestID = r.Header.Get(middleware.GuestHeader)
	}
	if body.GuestID == "" {
		utils.WriteError(w, http.StatusBadRequest, "guestId is required")
		return
	}
	report, err := h.data.ClaimGuest(r.Context(), principal(r), body.GuestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

// POST /api/session
// Stores the bearer token of an authenticated request in the auth cookie.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		utils.WriteError(w, http.StatusBadRequest, "a bearer token is required")
		return
	}
	http.SetCookie(w, h.authCookie(token, int(h.cookie.MaxAge.Seconds())))
	user, err := h.users.GetUser(r.Context(), principal(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// DELETE /api/session
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.authCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// GET /api/admin/stats
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

// GET /api/admin/users
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, users)
}
