package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/models"
)

type memUsers struct {
	users map[string]models.User
}

func (m *memUsers) SyncUser(ctx context.Context, u *models.User) error {
	if m.users == nil {
		m.users = map[string]models.User{}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

var cfg = auth.TokenConfig{Secret: "s3cret", Issuer: "stakemap", Audience: "stakemap-api"}

// stack returns the token and identity middlewares around a handler that echoes the principal.
func stack(t *testing.T, users *memUsers, guestMode bool, seen *auth.Principal) http.Handler {
	t.Helper()
	v, err := auth.NewValidator(cfg)
	require.NoError(t, err)
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if ok {
			*seen = p
		}
		w.WriteHeader(http.StatusOK)
	})
	return Chain(EnsureValidToken(v), Identify(users, guestMode))(final)
}

func TestIdentifySyncsTokenUser(t *testing.T) {
	users := &memUsers{}
	var seen auth.Principal
	h := stack(t, users, true, &seen)

	tok, err := auth.CreateToken(cfg, "u-1", "ada", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.Principal{ID: "u-1", Nickname: "ada", Role: models.RoleAdmin}, seen)
	assert.Equal(t, "ada", users.users["u-1"].Nickname)
}

func TestIdentifyGuest(t *testing.T) {
	var seen auth.Principal
	h := stack(t, &memUsers{}, true, &seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(GuestHeader, "device_42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, seen.Guest)
	assert.Equal(t, "guest:device_42", seen.AnalyticsID())
}

func TestIdentifyIgnoresGuestWhenDisabled(t *testing.T) {
	var seen auth.Principal
	h := stack(t, &memUsers{}, false, &seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(GuestHeader, "device_42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.Principal{}, seen)
}

func TestExpiredTokenRejected(t *testing.T) {
	var seen auth.Principal
	h := stack(t, &memUsers{}, true, &seen)

	tok, err := auth.CreateToken(cfg, "u-1", "ada", models.RoleUser, -time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestGuards(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	cases := []struct {
		name   string
		guard  func(http.HandlerFunc) http.HandlerFunc
		p      *auth.Principal
		status int
	}{
		{"actor anonymous", RequireActor, nil, http.StatusUnauthorized},
		{"actor guest", RequireActor, &auth.Principal{ID: "g", Guest: true}, http.StatusOK},
		{"user guest", RequireUser, &auth.Principal{ID: "g", Guest: true}, http.StatusUnauthorized},
		{"user", RequireUser, &auth.Principal{ID: "u", Role: models.RoleUser}, http.StatusOK},
		{"admin as user", RequireAdmin, &auth.Principal{ID: "u", Role: models.RoleUser}, http.StatusForbidden},
		{"admin", RequireAdmin, &auth.Principal{ID: "a", Role: models.RoleAdmin}, http.StatusOK},
		{"admin role on guest", RequireAdmin, &auth.Principal{ID: "g", Role: models.RoleAdmin, Guest: true}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.p != nil {
				req = req.WithContext(auth.WithPrincipal(req.Context(), *tc.p))
			}
			rec := httptest.NewRecorder()
			tc.guard(ok)(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestLoggerAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	h := Chain(Logger(log), Recovery(log))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/maps", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "Panic recovered")
	assert.Contains(t, buf.String(), `"status":500`)
}
