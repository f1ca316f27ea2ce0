package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/fhecity/internal/api/apierr"
	"github.com/mcoot/fhecity/internal/api/middleware"
	"github.com/mcoot/fhecity/internal/api/request"
	"github.com/mcoot/fhecity/internal/api/response"
	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/city"
)

// CityHandler handles city endpoints
type CityHandler struct {
	controller *city.Controller
}

// NewCityHandler creates a new city handler
func NewCityHandler(controller *city.Controller) *CityHandler {
	return &CityHandler{
		controller: controller,
	}
}

// Buildings handles GET /api/v1/city/buildings
func (h *CityHandler) Buildings(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Catalog())
}

// Join handles POST /api/v1/city/join
func (h *CityHandler) Join(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	account, err := h.controller.Join(r.Context(), player.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/city/accounts/"+string(player.ID), response.AccountFromModel(account))
}

// Place handles POST /api/v1/city/place.
// A rejected placement still answers 200; the outcome is only visible in the
// encrypted status.
func (h *CityHandler) Place(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.PlaceBuildingRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	account, err := h.controller.PlaceBuilding(r.Context(), player.ID, model.Position(*req.Position), fhe.EncryptedU8{Ciphertext: req.Building})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromModel(account))
}

// Membership handles GET /api/v1/city/accounts/{id}
func (h *CityHandler) Membership(w http.ResponseWriter, r *http.Request) {
	playerID := accountID(r)

	joined, err := h.controller.HasJoined(r.Context(), playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Membership{PlayerID: string(playerID), Joined: joined})
}

// Balance handles GET /api/v1/city/accounts/{id}/balance
func (h *CityHandler) Balance(w http.ResponseWriter, r *http.Request) {
	playerID := accountID(r)

	balance, err := h.controller.GetBalance(r.Context(), playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Encrypted{PlayerID: string(playerID), Ciphertext: balance.Ciphertext})
}

// Status handles GET /api/v1/city/accounts/{id}/status
func (h *CityHandler) Status(w http.ResponseWriter, r *http.Request) {
	playerID := accountID(r)

	status, err := h.controller.GetLastStatus(r.Context(), playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Encrypted{PlayerID: string(playerID), Ciphertext: status.Ciphertext})
}

// Board handles GET /api/v1/city/accounts/{id}/board
func (h *CityHandler) Board(w http.ResponseWriter, r *http.Request) {
	playerID := accountID(r)

	grid, err := h.controller.GetBoard(r.Context(), playerID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Board{PlayerID: string(playerID), Tiles: response.BoardFromModel(grid)})
}

// Tile handles GET /api/v1/city/accounts/{id}/tiles/{position}
func (h *CityHandler) Tile(w http.ResponseWriter, r *http.Request) {
	playerID := accountID(r)

	position, err := strconv.Atoi(mux.Vars(r)["position"])
	if err != nil {
		apierr.WriteError(w, model.ErrInvalidPosition)
		return
	}

	tile, err := h.controller.GetTile(r.Context(), playerID, model.Position(position))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Encrypted{PlayerID: string(playerID), Position: &position, Ciphertext: tile.Ciphertext})
}

func accountID(r *http.Request) model.PlayerID {
	return model.PlayerID(mux.Vars(r)["id"])
}
