package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/stakemap/auth"
	"github.com/andrewpaige1/stakemap/config"
	"github.com/andrewpaige1/stakemap/middleware"
	"github.com/andrewpaige1/stakemap/models"
	"github.com/andrewpaige1/stakemap/service"
	"github.com/andrewpaige1/stakemap/store"
)

var tokenConfig = auth.TokenConfig{Secret: "test-secret", Issuer: "stakemap", Audience: "stakemap-api"}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, max int) *testServer {
	t.Helper()
	db, err := config.Connect("sqlite", "file:"+models.NewID()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	gs := store.NewGormStore(db)
	require.NoError(t, gs.Migrate())
	t.Cleanup(func() { _ = gs.Close() })
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	maps := service.NewMapService(gs, fs, gs, max, zerolog.Nop())
	h := New(maps, service.NewDataService(maps), service.NewAdminService(gs, gs), gs, CookieOptions{})

	v, err := auth.NewValidator(tokenConfig)
	require.NoError(t, err)
	router := NewRouter(h, RouterConfig{
		Validator:      v,
		GuestMode:      true,
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         zerolog.Nop(),
	})
	return &testServer{t: t, handler: router}
}

func token(t *testing.T, subject string, role models.Role) string {
	t.Helper()
	tok, err := auth.CreateToken(tokenConfig, subject, strings.ToUpper(subject[:1])+subject[1:], role, time.Hour)
	require.NoError(t, err)
	return tok
}

// as is a request option: a bearer token, or a guest id when prefixed with "guest:".
func (s *testServer) do(method, path, as string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if guestID, ok := strings.CutPrefix(as, "guest:"); ok {
		req.Header.Set(middleware.GuestHeader, guestID)
	} else if as != "" {
		req.Header.Set("Authorization", "Bearer "+as)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 10)
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, 10)

	rec := s.do(http.MethodGet, "/api/maps", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decode[map[string]string](t, rec)["error"])

	rec = s.do(http.MethodGet, "/api/maps", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/me", "guest:device-1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/maps", "guest:../../etc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapWorkflow(t *testing.T) {
	s := newTestServer(t, 10)
	alice := token(t, "alice", models.RoleUser)

	rec := s.do(http.MethodPost, "/api/maps", alice, map[string]any{"name": "Launch", "project": map[string]any{"name": "Apollo"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[models.StakeholderMap](t, rec)
	assert.Equal(t, "alice", m.OwnerID)

	rec = s.do(http.MethodPost, "/api/maps/"+m.ID+"/stakeholders", alice, map[string]any{
		"name": "Regulator", "influence": 12, "impact": 7.6, "category": "nonsense",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sh := decode[models.Stakeholder](t, rec)
	assert.Equal(t, 10, sh.Influence)
	assert.Equal(t, 8, sh.Impact)
	assert.Equal(t, models.CategoryOther, sh.Category)
	assert.Equal(t, models.QuadrantManageClosely, sh.Quadrant)

	shPath := "/api/maps/" + m.ID + "/stakeholders/" + sh.ID
	rec = s.do(http.MethodPut, shPath, alice, map[string]any{"impact": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.QuadrantKeepSatisfied, decode[models.Stakeholder](t, rec).Quadrant)

	rec = s.do(http.MethodPost, shPath+"/interactions", alice, map[string]any{"note": "met at expo", "type": "event"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	it := decode[models.Interaction](t, rec)
	assert.Equal(t, models.InteractionEvent, it.Type)

	rec = s.do(http.MethodGet, "/api/maps/"+m.ID+"/matrix", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mx := decode[models.Matrix](t, rec)
	assert.Len(t, mx.Quadrants[models.QuadrantKeepSatisfied], 1)

	rec = s.do(http.MethodGet, "/api/maps", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.MapSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].StakeholderCount)
	assert.Equal(t, "Apollo", list[0].ProjectName)

	rec = s.do(http.MethodPost, "/api/maps/"+m.ID+"/duplicate", alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Launch (copy)", decode[models.StakeholderMap](t, rec).Name)

	rec = s.do(http.MethodDelete, shPath+"/interactions/"+it.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, shPath, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, shPath, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/maps/"+m.ID, alice, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/maps/"+m.ID, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/maps/"+m.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOtherUsersMapIsNotFound(t *testing.T) {
	s := newTestServer(t, 10)
	alice := token(t, "alice", models.RoleUser)
	bob := token(t, "bob", models.RoleUser)

	rec := s.do(http.MethodPost, "/api/maps", alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	m := decode[models.StakeholderMap](t, rec)

	rec = s.do(http.MethodGet, "/api/maps/"+m.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, "/api/maps/"+m.ID, "guest:device-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFullMapIsConflict(t *testing.T) {
	s := newTestServer(t, 1)
	alice := token(t, "alice", models.RoleUser)

	rec := s.do(http.MethodPost, "/api/maps", alice, nil)
	m := decode[models.StakeholderMap](t, rec)

	rec = s.do(http.MethodPost, "/api/maps/"+m.ID+"/stakeholders", alice, map[string]any{"name": "One"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(http.MethodPost, "/api/maps/"+m.ID+"/stakeholders", alice, map[string]any{"name": "Two"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, 10)
	rec := s.do(http.MethodPost, "/api/maps", token(t, "alice", models.RoleUser), "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestDataCanBeClaimed(t *testing.T) {
	s := newTestServer(t, 10)
	guest := "guest:device-1"

	rec := s.do(http.MethodPost, "/api/maps", guest, map[string]any{"name": "Offline"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[models.StakeholderMap](t, rec)
	assert.Equal(t, "device-1", m.OwnerID)

	alice := token(t, "alice", models.RoleUser)
	rec = s.do(http.MethodPost, "/api/me/claim-guest", alice, map[string]string{"guestId": "device-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[service.ImportReport](t, rec)
	assert.Equal(t, 1, report.Maps.Added)

	rec = s.do(http.MethodGet, "/api/maps/"+m.ID, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/maps", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.MapSummary](t, rec))
}

func TestExportAndImport(t *testing.T) {
	s := newTestServer(t, 10)
	alice := token(t, "alice", models.RoleUser)

	rec := s.do(http.MethodPost, "/api/maps", alice, map[string]any{"name": "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code)
	m := decode[models.StakeholderMap](t, rec)
	rec = s.do(http.MethodPost, "/api/maps/"+m.ID+"/stakeholders", alice, map[string]any{"name": "CFO"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/export?format=yaml", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".yaml")
	exported := rec.Body.String()

	rec = s.do(http.MethodDelete, "/api/data", alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/maps", alice, nil)
	assert.Empty(t, decode[[]models.MapSummary](t, rec))

	rec = s.do(http.MethodPost, "/api/import?strategy=fancy", alice, exported)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/import?strategy=overwrite", alice, exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[service.ImportReport](t, rec)
	assert.Equal(t, service.Overwrite, report.Strategy)
	assert.Equal(t, 1, report.Maps.Added)
	assert.Equal(t, 1, report.Stakeholders.Added)

	rec = s.do(http.MethodGet, "/api/maps/"+m.ID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.StakeholderMap](t, rec).Stakeholders, 1)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, 10)

	rec := s.do(http.MethodGet, "/api/admin/stats", token(t, "alice", models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := token(t, "root", models.RoleAdmin)
	rec = s.do(http.MethodPost, "/api/maps", admin, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[service.Stats](t, rec)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 1, stats.Admins)
	assert.EqualValues(t, 1, stats.Events[models.EventMapCreated])

	rec = s.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.User](t, rec), 2)
}

func TestSessionCookie(t *testing.T) {
	s := newTestServer(t, 10)
	alice := token(t, "alice", models.RoleUser)

	rec := s.do(http.MethodPost, "/api/session", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[models.User](t, rec)
	assert.Equal(t, "alice", me.ID)
	assert.Equal(t, "Alice", me.Nickname)

	rec = s.do(http.MethodDelete, "/api/session", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
