package handler

import (
	"net/http"

	"github.com/mcoot/minesgame/internal/api/response"
	"github.com/mcoot/minesgame/internal/services/grid"
)

// MetaHandler serves read-only information about the server and its rules
type MetaHandler struct {
	grid        *grid.Service
	connections func() int
}

// NewMetaHandler creates a new meta handler. connections may be nil.
func NewMetaHandler(gridService *grid.Service, connections func() int) *MetaHandler {
	return &MetaHandler{grid: gridService, connections: connections}
}

// Health handles GET /api/v1/health
func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := response.Health{Status: "ok"}
	if h.connections != nil {
		resp.Connections = h.connections()
	}
	response.JSON(w, http.StatusOK, resp)
}

// Multipliers handles GET /api/v1/multipliers
func (h *MetaHandler) Multipliers(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.MultipliersFromModel(h.grid.Size(), h.grid.Table()))
}
