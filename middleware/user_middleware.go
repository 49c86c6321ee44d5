package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/store"
	"github.com/andrewpaige1/stakemap/utils"
)

// GuestHeader carries the client-generated id of a guest session.
const GuestHeader = "X-Guest-ID"

// Identify resolves the request's Principal. Token holders are synced into the
// user store; requests without a token become guests when guestMode allows it
// and they send a valid GuestHeader. Anything else continues anonymously and is
// stopped by the route guards.
func Identify(users store.UserStore, guestMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := zerolog.Ctx(r.Context())

			if claims, ok := utils.GetClaims(r); ok {
				subject := claims.RegisteredClaims.Subject
				if subject == "" {
					utils.WriteError(w, http.StatusUnauthorized, "token has no subject")
					return
				}
				user := models.User{ID: subject, Role: models.RoleUser}
				if custom, ok := claims.CustomClaims.(*auth.CustomClaims); ok && custom != nil {
					user.Nickname = custom.Nickname
					user.Role = models.ParseRole(custom.Role)
				}
				if err := users.SyncUser(r.Context(), &user); err != nil {
					log.Error().Err(err).Str("user", subject).Msg("failed to sync user")
					utils.WriteError(w, http.StatusInternalServerError, "failed to sync user")
					return
				}
				p := auth.Principal{ID: user.ID, Nickname: user.Nickname, Role: user.Role}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
				return
			}

			if guestID := r.Header.Get(GuestHeader); guestID != "" && guestMode {
				if !store.ValidGuestID(guestID) {
					utils.WriteError(w, http.StatusBadRequest, "invalid guest id")
					return
				}
				p := auth.Principal{ID: guestID, Role: models.RoleUser, Guest: true}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
