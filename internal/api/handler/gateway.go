package handler

import (
	"net/http"

	"github.com/mcoot/fhecity/internal/api/apierr"
	"github.com/mcoot/fhecity/internal/api/middleware"
	"github.com/mcoot/fhecity/internal/api/request"
	"github.com/mcoot/fhecity/internal/api/response"
	"github.com/mcoot/fhecity/internal/services/gateway"
)

// GatewayHandler exposes encryption and decryption to authenticated players
type GatewayHandler struct {
	gateway *gateway.Service
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(gatewayService *gateway.Service) *GatewayHandler {
	return &GatewayHandler{
		gateway: gatewayService,
	}
}

// Encrypt handles POST /api/v1/gateway/encrypt
func (h *GatewayHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.EncryptRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	ct, err := h.gateway.EncryptInput(r.Context(), player.ID, req.ParsedKind(), req.Value)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Encrypted{PlayerID: string(player.ID), Ciphertext: ct})
}

// Decrypt handles POST /api/v1/gateway/decrypt
func (h *GatewayHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.DecryptRequest
	if err := request.Decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	value, err := h.gateway.Decrypt(r.Context(), player.ID, req.Ciphertext)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Decrypted{Kind: req.Ciphertext.Kind.String(), Value: value})
}
