package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// LeadSubmitRequest is the public lead capture form payload
type LeadSubmitRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Service      string `json:"service,omitempty"`
	Message      string `json:"message,omitempty"`
	CaptchaToken string `json:"captcha_token,omitempty"`
}

// handleLeadSubmit handles POST /api/leads. This is the only public
// write endpoint, so it is CAPTCHA-gated when a provider is configured.
func (h *Handlers) handleLeadSubmit(w http.ResponseWriter, r *http.Request) {
	var req LeadSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		h.sendError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		h.sendError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	if h.captcha != nil {
		if err := h.captcha.Verify(r.Context(), req.CaptchaToken, r.RemoteAddr); err != nil {
			if h.metrics != nil {
				h.metrics.CaptchaFailedTotal.Inc()
			}
			h.logger.Warn("captcha verification failed", "remote_addr", r.RemoteAddr, "error", err)
			h.sendError(w, http.StatusForbidden, "captcha verification failed")
			return
		}
	}

	lead := &models.Lead{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		City:    req.City,
		State:   req.State,
		Service: req.Service,
		Message: req.Message,
		Status:  models.LeadStatusNew,
	}
	if err := h.leads.Create(lead); err != nil {
		h.logger.Error("failed to create lead", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to save lead")
		return
	}

	if h.metrics != nil {
		h.metrics.LeadsCreatedTotal.Inc()
	}
	h.logger.Info("lead created", "id", lead.ID, "service", lead.Service)
	h.sendJSON(w, http.StatusCreated, lead)
}

// LeadListResponse is the paged lead listing
type LeadListResponse struct {
	Leads []models.Lead `json:"leads"`
	Total int           `json:"total"`
}

// handleLeadList handles GET /api/leads
func (h *Handlers) handleLeadList(w http.ResponseWriter, r *http.Request) {
	filter := models.LeadFilter{
		Status:     r.URL.Query().Get("status"),
		AssignedTo: r.URL.Query().Get("assigned_to"),
		Search:     r.URL.Query().Get("search"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}

	leads, total, err := h.leads.List(filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to list leads")
		return
	}

	h.sendJSON(w, http.StatusOK, LeadListResponse{Leads: leads, Total: total})
}

// handleLeadGet handles GET /api/leads/{id}
func (h *Handlers) handleLeadGet(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get lead", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get lead")
		return
	}
	if lead == nil {
		h.sendError(w, http.StatusNotFound, "Lead not found")
		return
	}
	h.sendJSON(w, http.StatusOK, lead)
}

// handleLeadStatus handles PUT /api/leads/{id}/status
func (h *Handlers) handleLeadStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Status {
	case models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusClosed:
	default:
		h.sendError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.leads.UpdateStatus(chi.URLParam(r, "id"), req.Status); err != nil {
		h.sendError(w, http.StatusNotFound, "Lead not found")
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// handleLeadAssign handles PUT /api/leads/{id}/assign
func (h *Handlers) handleLeadAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.leads.Assign(chi.URLParam(r, "id"), req.UserID); err != nil {
		h.logger.Error("failed to assign lead", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to assign lead")
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]string{"assigned_to": req.UserID})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
