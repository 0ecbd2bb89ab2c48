package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/segment"
)

// SegmentRequest is the create/update payload
type SegmentRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Criteria    models.SegmentCriteria `json:"criteria"`
}

func (req *SegmentRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	switch req.Criteria.Preset {
	case "", models.PresetHot, models.PresetWarm, models.PresetCold, models.PresetNoConversion:
	default:
		return "unknown preset: " + req.Criteria.Preset
	}
	if req.Criteria.Status != "" {
		switch req.Criteria.Status {
		case models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusClosed:
		default:
			return "invalid status in criteria"
		}
	}
	if req.Criteria.MinAgeDays < 0 || req.Criteria.MaxAgeDays < 0 {
		return "age bounds must not be negative"
	}
	if req.Criteria.MaxAgeDays > 0 && req.Criteria.MinAgeDays > req.Criteria.MaxAgeDays {
		return "min_age_days exceeds max_age_days"
	}
	return ""
}

// handleSegmentList handles GET /api/segments
func (h *Handlers) handleSegmentList(w http.ResponseWriter, r *http.Request) {
	segments, err := h.segments.List()
	if err != nil {
		h.logger.Error("failed to list segments", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to list segments")
		return
	}
	h.sendJSON(w, http.StatusOK, segments)
}

// handleSegmentCreate handles POST /api/segments
func (h *Handlers) handleSegmentCreate(w http.ResponseWriter, r *http.Request) {
	var req SegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.sendError(w, http.StatusBadRequest, msg)
		return
	}

	seg := &models.Segment{Name: req.Name, Description: req.Description}
	seg.SetCriteria(req.Criteria)

	if err := h.segments.Create(seg); err != nil {
		h.logger.Error("failed to create segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to create segment")
		return
	}
	h.sendJSON(w, http.StatusCreated, seg)
}

// handleSegmentGet handles GET /api/segments/{id}
func (h *Handlers) handleSegmentGet(w http.ResponseWriter, r *http.Request) {
	seg, err := h.segments.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get segment")
		return
	}
	if seg == nil {
		h.sendError(w, http.StatusNotFound, "Segment not found")
		return
	}
	h.sendJSON(w, http.StatusOK, seg)
}

// handleSegmentUpdate handles PUT /api/segments/{id}
func (h *Handlers) handleSegmentUpdate(w http.ResponseWriter, r *http.Request) {
	seg, err := h.segments.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get segment")
		return
	}
	if seg == nil {
		h.sendError(w, http.StatusNotFound, "Segment not found")
		return
	}

	var req SegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.sendError(w, http.StatusBadRequest, msg)
		return
	}

	seg.Name = req.Name
	seg.Description = req.Description
	seg.SetCriteria(req.Criteria)

	if err := h.segments.Update(seg); err != nil {
		h.logger.Error("failed to update segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to update segment")
		return
	}
	h.sendJSON(w, http.StatusOK, seg)
}

// handleSegmentDelete handles DELETE /api/segments/{id}
func (h *Handlers) handleSegmentDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.segments.Delete(chi.URLParam(r, "id")); err != nil {
		h.logger.Error("failed to delete segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to delete segment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSegmentRefresh handles POST /api/segments/{id}/refresh:
// recomputes the cached match count against the current lead pool
func (h *Handlers) handleSegmentRefresh(w http.ResponseWriter, r *http.Request) {
	seg, err := h.segments.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get segment")
		return
	}
	if seg == nil {
		h.sendError(w, http.StatusNotFound, "Segment not found")
		return
	}

	criteria, err := seg.ParseCriteria()
	if err != nil {
		h.sendError(w, http.StatusUnprocessableEntity, "Segment criteria are invalid")
		return
	}

	pool, err := h.leads.All()
	if err != nil {
		h.logger.Error("failed to load leads", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to load leads")
		return
	}

	count := segment.Count(pool, criteria, time.Now())
	if err := h.segments.UpdateCount(seg.ID, count); err != nil {
		h.logger.Error("failed to update segment count", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to update segment")
		return
	}

	seg.LeadCount = count
	h.sendJSON(w, http.StatusOK, map[string]int{"lead_count": count})
}

// SegmentPreviewResponse is the preview listing
type SegmentPreviewResponse struct {
	Leads []models.Lead `json:"leads"`
	Total int           `json:"total"`
}

// handleSegmentPreview handles GET /api/segments/{id}/preview: returns
// the first matching leads without touching the cached count
func (h *Handlers) handleSegmentPreview(w http.ResponseWriter, r *http.Request) {
	seg, err := h.segments.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get segment", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get segment")
		return
	}
	if seg == nil {
		h.sendError(w, http.StatusNotFound, "Segment not found")
		return
	}

	criteria, err := seg.ParseCriteria()
	if err != nil {
		h.sendError(w, http.StatusUnprocessableEntity, "Segment criteria are invalid")
		return
	}

	pool, err := h.leads.All()
	if err != nil {
		h.logger.Error("failed to load leads", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to load leads")
		return
	}

	matched := segment.Materialize(pool, criteria, time.Now())
	limit := queryInt(r, "limit", 25)
	preview := matched
	if len(preview) > limit {
		preview = preview[:limit]
	}

	h.sendJSON(w, http.StatusOK, SegmentPreviewResponse{Leads: preview, Total: len(matched)})
}
