package handler

import (
	"net/http"

	"github.com/mcoot/fhecity/internal/api/apierr"
	"github.com/mcoot/fhecity/internal/api/middleware"
	"github.com/mcoot/fhecity/internal/api/request"
	"github.com/mcoot/fhecity/internal/api/response"
	"github.com/mcoot/fhecity/internal/services/auth"
)

// PlayerHandler handles identity endpoints
type PlayerHandler struct {
	authService *auth.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
	}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	session, err := h.authService.CreateGuestPlayer(r.Context(), req.DisplayName)
	writeSession(w, http.StatusCreated, session, err)
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	session, err := h.authService.RegisterPlayer(r.Context(), req.Username, req.Password, req.DisplayName)
	writeSession(w, http.StatusCreated, session, err)
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	writeSession(w, http.StatusOK, session, err)
}

func writeSession(w http.ResponseWriter, status int, session *auth.Session, err error) {
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, status, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.PlayerFromModel(middleware.MustGetPlayer(r.Context())))
}

// Logout handles POST /api/v1/players/logout[?all=true].
// With all=true every session of the caller ends, not just this one.
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if r.URL.Query().Get("all") == "true" {
		h.authService.InvalidatePlayerSessions(session.PlayerID)
	} else {
		h.authService.InvalidateSession(session.Token)
	}
	response.NoContent(w)
}
