package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/service"
	"github.com/andrewpaige1/stakemap/store"
	"github.com/andrewpaige1/stakemap/utils"
)

const maxBodyBytes = 1 << 20

// principal is only called behind a guard, which guarantees one is present.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", models.ErrInvalid, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMapFull), errors.Is(err, models.ErrMapMismatch):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalid),
		errors.Is(err, store.ErrInvalidGuestID),
		errors.Is(err, service.ErrInvalidStrategy),
		errors.Is(err, service.ErrUnsupportedVersion):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrGuestDisabled):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError maps a service error to its status. Server errors are logged and
// their detail kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		utils.WriteError(w, status, "Internal server error")
		return
	}
	if status == http.StatusNotFound {
		utils.WriteError(w, status, "Not found")
		return
	}
	utils.WriteError(w, status, err.Error())
}
