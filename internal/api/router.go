package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/fhecity/internal/api/handler"
	"github.com/mcoot/fhecity/internal/api/middleware"
	"github.com/mcoot/fhecity/internal/events"
	"github.com/mcoot/fhecity/internal/services/auth"
	"github.com/mcoot/fhecity/internal/services/city"
	"github.com/mcoot/fhecity/internal/services/gateway"
	"github.com/mcoot/fhecity/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	CityController *city.Controller
	GatewayService *gateway.Service
	Storage        storage.Storage
	HubManager     *events.HubManager
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	cityHandler := handler.NewCityHandler(cfg.CityController)
	gatewayHandler := handler.NewGatewayHandler(cfg.GatewayService)
	eventsHandler := handler.NewEventsHandler(cfg.Storage, cfg.HubManager)
	healthHandler := handler.NewHealthHandler(cfg.Storage)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	if cfg.RateLimiter != nil {
		// Resolve the caller first so limits follow players across addresses
		api.Use(middleware.OptionalAuth(cfg.AuthService))
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Public city reads: every value returned is encrypted
	cityRoutes := api.PathPrefix("/city").Subrouter()
	cityRoutes.HandleFunc("/buildings", cityHandler.Buildings).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/accounts/{id}", cityHandler.Membership).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/accounts/{id}/balance", cityHandler.Balance).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/accounts/{id}/board", cityHandler.Board).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/accounts/{id}/status", cityHandler.Status).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/accounts/{id}/tiles/{position}", cityHandler.Tile).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/events", eventsHandler.List).Methods(http.MethodGet)
	cityRoutes.HandleFunc("/events/stream", eventsHandler.Stream).Methods(http.MethodGet)

	// City mutations act on the caller's own account
	cityProtected := api.PathPrefix("/city").Subrouter()
	cityProtected.Use(authMiddleware)
	cityProtected.HandleFunc("/join", cityHandler.Join).Methods(http.MethodPost)
	cityProtected.HandleFunc("/place", cityHandler.Place).Methods(http.MethodPost)

	// Gateway routes (all require auth)
	gatewayRoutes := api.PathPrefix("/gateway").Subrouter()
	gatewayRoutes.Use(authMiddleware)
	gatewayRoutes.HandleFunc("/encrypt", gatewayHandler.Encrypt).Methods(http.MethodPost)
	gatewayRoutes.HandleFunc("/decrypt", gatewayHandler.Decrypt).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	return r
}
