package api

import (
	"encoding/json"
	"net/http"

	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/log"
)

// maxBodyBytes caps uploaded range files
const maxBodyBytes = 10 << 20

// Handler handles HTTP requests
type Handler struct {
	service *inventory.Service
}

// NewHandler creates a new API handler
func NewHandler(s *inventory.Service) *Handler {
	return &Handler{service: s}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ip-ranges/validate", h.validateRanges)
	mux.HandleFunc("GET /api/ip-ranges/audit", h.auditRanges)

	mux.HandleFunc("GET /api/ip-ranges", h.listRanges)
	mux.HandleFunc("POST /api/ip-ranges", h.createRange)
	mux.HandleFunc("GET /api/ip-ranges/{id}", h.getRange)
	mux.HandleFunc("PUT /api/ip-ranges/{id}", h.updateRange)
	mux.HandleFunc("DELETE /api/ip-ranges/{id}", h.deleteRange)

	mux.HandleFunc("GET /api/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Debug("Failed to write response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal server error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
