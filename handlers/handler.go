package handlers

import (
	"net/http"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/andrewpaige1/stakemap/middleware"
	"github.com/andrewpaige1/stakemap/service"
	"github.com/andrewpaige1/stakemap/store"
	"github.com/andrewpaige1/stakemap/utils"
)

// CookieOptions controls the auth cookie issued by the session endpoint.
type CookieOptions struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

type Handler struct {
	maps   *service.MapService
	data   *service.DataService
	admin  *service.AdminService
	users  store.UserStore
	cookie CookieOptions
}

func New(maps *service.MapService, data *service.DataService, admin *service.AdminService, users store.UserStore, cookie CookieOptions) *Handler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 24 * time.Hour
	}
	return &Handler{maps: maps, data: data, admin: admin, users: users, cookie: cookie}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	actor := middleware.RequireActor
	user := middleware.RequireUser
	admin := middleware.RequireAdmin

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)

	// Maps
	mux.HandleFunc("GET /api/maps", actor(h.ListMaps))
	mux.HandleFunc("POST /api/maps", actor(h.CreateMap))
	mux.HandleFunc("GET /api/maps/{mapID}", actor(h.GetMap))
	mux.HandleFunc("PUT /api/maps/{mapID}", actor(h.UpdateMap))
	mux.HandleFunc("DELETE /api/maps/{mapID}", actor(h.DeleteMap))
	mux.HandleFunc("POST /api/maps/{mapID}/duplicate", actor(h.DuplicateMap))
	mux.HandleFunc("GET /api/maps/{mapID}/matrix", actor(h.GetMatrix))

	// Stakeholders
	mux.HandleFunc("POST /api/maps/{mapID}/stakeholders", actor(h.AddStakeholder))
	mux.HandleFunc("PUT /api/maps/{mapID}/stakeholders/{stakeholderID}", actor(h.UpdateStakeholder))
	mux.HandleFunc("DELETE /api/maps/{mapID}/stakeholders/{stakeholderID}", actor(h.RemoveStakeholder))

	// Interactions
	mux.HandleFunc("POST /api/maps/{mapID}/stakeholders/{stakeholderID}/interactions", actor(h.LogInteraction))
	mux.HandleFunc("DELETE /api/maps/{mapID}/stakeholders/{stakeholderID}/interactions/{interactionID}", actor(h.RemoveInteraction))

	// Data
	mux.HandleFunc("GET /api/export", actor(h.Export))
	mux.HandleFunc("POST /api/import", actor(h.Import))
	mux.HandleFunc("DELETE /api/data", actor(h.ClearData))

	// Account
	mux.HandleFunc("GET /api/me", user(h.Me))
	mux.HandleFunc("POST /api/me/claim-guest", user(h.ClaimGuest))
	mux.HandleFunc("POST /api/session", user(h.CreateSession))
	mux.HandleFunc("DELETE /api/session", h.DeleteSession)

	// Admin
	mux.HandleFunc("GET /api/admin/stats", admin(h.AdminStats))
	mux.HandleFunc("GET /api/admin/users", admin(h.AdminUsers))

	return mux
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RouterConfig carries what the middleware stack needs around the routes.
type RouterConfig struct {
	Validator      *validator.Validator
	GuestMode      bool
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wraps the routes in CORS, logging, recovery, token validation and
// principal resolution, outermost first.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	stack := middleware.Chain(
		middleware.Logger(cfg.Logger),
		middleware.Recovery(cfg.Logger),
		middleware.EnsureValidToken(cfg.Validator),
		middleware.Identify(h.users, cfg.GuestMode),
	)
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin", middleware.GuestHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(stack(h.Routes()))
}
