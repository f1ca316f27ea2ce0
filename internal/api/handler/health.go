package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/fhecity/internal/api/response"
	"github.com/mcoot/fhecity/internal/storage"
)

const storagePingTimeout = 2 * time.Second

// HealthHandler reports server liveness and storage reachability
type HealthHandler struct {
	storage storage.Storage
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store storage.Storage) *HealthHandler {
	return &HealthHandler{storage: store}
}

// Check handles GET /api/v1/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), storagePingTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{
			Status:  response.HealthDegraded,
			Storage: err.Error(),
		})
		return
	}

	response.JSON(w, http.StatusOK, response.Health{
		Status:  response.HealthOK,
		Storage: response.HealthOK,
	})
}
