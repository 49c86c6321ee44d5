package middleware

import (
	"net/http"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/utils"
)

// RequireActor admits authenticated users and guests.
func RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFrom(r.Context()); !ok {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// RequireUser admits authenticated users only.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok || p.Guest {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// RequireAdmin admits authenticated users holding the admin role.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireUser(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		if !p.IsAdmin() {
			utils.WriteError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	})
}
