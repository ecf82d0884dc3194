package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/martinsuchenak/geotoolkit/internal/inventory"
	"github.com/martinsuchenak/geotoolkit/internal/iprange"
	"github.com/martinsuchenak/geotoolkit/internal/log"
	"github.com/martinsuchenak/geotoolkit/internal/model"
	"github.com/martinsuchenak/geotoolkit/internal/storage"
)

// rangeResponse is returned by create and update
type rangeResponse struct {
	IPRange    *model.KnownRange `json:"ip_range,omitempty"`
	Validation iprange.Result    `json:"validation"`
	Error      string            `json:"error,omitempty"`
}

// validateRanges handles POST /api/ip-ranges/validate
func (h *Handler) validateRanges(w http.ResponseWriter, r *http.Request) {
	ranges, err := iprange.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := h.service.Validate(ranges)
	log.Debug("Validated ranges", "total", report.Summary.TotalRanges, "issues", report.Summary.TotalIssues)

	h.writeJSON(w, http.StatusOK, report)
}

// auditRanges handles GET /api/ip-ranges/audit
func (h *Handler) auditRanges(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Audit()
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// listRanges handles GET /api/ip-ranges
func (h *Handler) listRanges(w http.ResponseWriter, r *http.Request) {
	filter := &model.KnownRangeFilter{
		Name: r.URL.Query().Get("name"),
		Tags: r.URL.Query()["tag"],
	}

	ranges, err := h.service.List(filter)
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ranges)
}

// getRange handles GET /api/ip-ranges/{id}
func (h *Handler) getRange(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "ip range ID required")
		return
	}

	known, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrRangeNotFound) {
			h.writeError(w, http.StatusNotFound, "ip range not found")
			return
		}
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, known)
}

// createRange handles POST /api/ip-ranges
func (h *Handler) createRange(w http.ResponseWriter, r *http.Request) {
	known, ok := h.decodeRange(w, r)
	if !ok {
		return
	}

	result, err := h.service.Create(known, forceRequested(r))
	if err != nil {
		if errors.Is(err, inventory.ErrRejected) {
			h.writeJSON(w, http.StatusUnprocessableEntity, rangeResponse{
				Validation: result,
				Error:      err.Error(),
			})
			return
		}
		if errors.Is(err, storage.ErrRangeExists) {
			h.writeError(w, http.StatusConflict, "ip range already exists")
			return
		}
		h.internalError(w, err)
		return
	}

	log.Info("IP range created", "id", known.ID, "name", known.Name, "status", result.Status)
	h.writeJSON(w, http.StatusCreated, rangeResponse{IPRange: known, Validation: result})
}

// updateRange handles PUT /api/ip-ranges/{id}
func (h *Handler) updateRange(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "ip range ID required")
		return
	}

	known, ok := h.decodeRange(w, r)
	if !ok {
		return
	}
	known.ID = id

	result, err := h.service.Update(known, forceRequested(r))
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrRejected):
			h.writeJSON(w, http.StatusUnprocessableEntity, rangeResponse{
				Validation: result,
				Error:      err.Error(),
			})
		case errors.Is(err, storage.ErrRangeNotFound):
			h.writeError(w, http.StatusNotFound, "ip range not found")
		default:
			h.internalError(w, err)
		}
		return
	}

	log.Info("IP range updated", "id", known.ID, "name", known.Name, "status", result.Status)
	h.writeJSON(w, http.StatusOK, rangeResponse{IPRange: known, Validation: result})
}

// deleteRange handles DELETE /api/ip-ranges/{id}
func (h *Handler) deleteRange(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "ip range ID required")
		return
	}

	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, storage.ErrRangeNotFound) {
			h.writeError(w, http.StatusNotFound, "ip range not found")
			return
		}
		h.internalError(w, err)
		return
	}

	log.Info("IP range deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeRange(w http.ResponseWriter, r *http.Request) (*model.KnownRange, bool) {
	var known model.KnownRange
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&known); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if strings.TrimSpace(known.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return nil, false
	}
	if known.StartIP == "" || known.EndIP == "" {
		h.writeError(w, http.StatusBadRequest, "start_ip and end_ip are required")
		return nil, false
	}

	return &known, true
}

func forceRequested(r *http.Request) bool {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return force
}
