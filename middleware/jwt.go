package middleware

import (
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/rs/zerolog"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/utils"
)

// EnsureValidToken validates a bearer token or auth cookie when one is present.
// Requests without credentials pass through so guest mode and public routes keep working.
func EnsureValidToken(v *validator.Validator) func(http.Handler) http.Handler {
	m := jwtmiddleware.New(
		v.ValidateToken,
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithValidateOnOptions(false),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.CookieTokenExtractor(auth.CookieName),
		)),
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rejected token")
			utils.WriteError(w, http.StatusUnauthorized, "invalid token")
		}),
	)
	return m.CheckJWT
}
