package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// CampaignRequest is the campaign create payload. The audience is either
// inline criteria or a saved segment referenced by id.
type CampaignRequest struct {
	Name        string                  `json:"name"`
	Subject     string                  `json:"subject"`
	BodyHTML    string                  `json:"body_html"`
	BodyText    string                  `json:"body_text,omitempty"`
	Purpose     string                  `json:"purpose,omitempty"`
	SegmentID   string                  `json:"segment_id,omitempty"`
	Audience    *models.SegmentCriteria `json:"audience,omitempty"`
	Mode        string                  `json:"mode,omitempty"`
	ScheduledAt *time.Time              `json:"scheduled_at,omitempty"`
	DailyLimit  int                     `json:"daily_limit,omitempty"`
}

func (req *CampaignRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Subject == "" {
		return "subject is required"
	}
	if req.BodyHTML == "" && req.BodyText == "" {
		return "body_html or body_text is required"
	}
	switch req.Mode {
	case "", models.ModeNow, models.ModeSchedule, models.ModeBatch:
	default:
		return "mode must be now, schedule or batch"
	}
	if req.Mode == models.ModeSchedule && req.ScheduledAt == nil {
		return "scheduled_at is required for schedule mode"
	}
	if req.Mode == models.ModeBatch && req.DailyLimit <= 0 {
		return "daily_limit is required for batch mode"
	}
	if req.SegmentID != "" && req.Audience != nil {
		return "segment_id and audience are mutually exclusive"
	}
	return ""
}

// handleCampaignList handles GET /api/campaigns
func (h *Handlers) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	filter := models.CampaignFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("archived"); raw != "" {
		archived := raw == "true"
		filter.Archived = &archived
	}

	campaigns, total, err := h.campaigns.List(filter)
	if err != nil {
		h.logger.Error("failed to list campaigns", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to list campaigns")
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns, "total": total})
}

// handleCampaignCreate handles POST /api/campaigns
func (h *Handlers) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.sendError(w, http.StatusBadRequest, msg)
		return
	}

	campaign := &models.Campaign{
		Name:        req.Name,
		Subject:     req.Subject,
		BodyHTML:    req.BodyHTML,
		BodyText:    req.BodyText,
		Purpose:     req.Purpose,
		Mode:        req.Mode,
		ScheduledAt: req.ScheduledAt,
		DailyLimit:  req.DailyLimit,
	}

	switch {
	case req.SegmentID != "":
		seg, err := h.segments.GetByID(req.SegmentID)
		if err != nil {
			h.logger.Error("failed to get segment", "error", err)
			h.sendError(w, http.StatusInternalServerError, "Failed to get segment")
			return
		}
		if seg == nil {
			h.sendError(w, http.StatusBadRequest, "segment not found")
			return
		}
		criteria, err := seg.ParseCriteria()
		if err != nil {
			h.sendError(w, http.StatusUnprocessableEntity, "Segment criteria are invalid")
			return
		}
		campaign.SetAudience(criteria)
	case req.Audience != nil:
		campaign.SetAudience(*req.Audience)
	default:
		campaign.SetAudience(models.SegmentCriteria{})
	}

	if err := h.campaigns.Create(campaign); err != nil {
		h.logger.Error("failed to create campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	h.logger.Info("campaign created", "id", campaign.ID, "mode", campaign.Mode)
	h.sendJSON(w, http.StatusCreated, campaign)
}

// handleCampaignGet handles GET /api/campaigns/{id}
func (h *Handlers) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}
	h.sendJSON(w, http.StatusOK, campaign)
}

// handleCampaignDelete handles DELETE /api/campaigns/{id}. Only drafts
// may be deleted; anything that sent mail keeps its history.
func (h *Handlers) handleCampaignDelete(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if campaign.Status != models.CampaignStatusDraft {
		h.sendError(w, http.StatusConflict, "only draft campaigns can be deleted")
		return
	}

	if err := h.campaigns.Delete(campaign.ID); err != nil {
		h.logger.Error("failed to delete campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCampaignSend handles POST /api/campaigns/{id}/send. Immediate
// sends run in the background; scheduled and batch campaigns are armed
// for the dispatcher.
func (h *Handlers) handleCampaignSend(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if campaign.Archived {
		h.sendError(w, http.StatusConflict, "campaign is archived")
		return
	}
	if campaign.Status != models.CampaignStatusDraft {
		h.sendError(w, http.StatusConflict, "campaign has already been triggered")
		return
	}

	switch campaign.Mode {
	case models.ModeSchedule:
		if err := h.campaigns.UpdateStatus(campaign.ID, models.CampaignStatusScheduled); err != nil {
			h.logger.Error("failed to schedule campaign", "error", err)
			h.sendError(w, http.StatusInternalServerError, "Failed to schedule campaign")
			return
		}
		h.sendJSON(w, http.StatusAccepted, map[string]string{"status": models.CampaignStatusScheduled})

	case models.ModeBatch:
		if err := h.campaigns.UpdateStatus(campaign.ID, models.CampaignStatusSending); err != nil {
			h.logger.Error("failed to start batch campaign", "error", err)
			h.sendError(w, http.StatusInternalServerError, "Failed to start campaign")
			return
		}
		h.sendJSON(w, http.StatusAccepted, map[string]string{"status": models.CampaignStatusSending})

	default:
		// Immediate send: the request returns as soon as the run is
		// handed off; progress is visible through the report endpoint
		go func() {
			if err := h.dispatcher.RunCampaign(context.Background(), campaign); err != nil {
				h.logger.Error("campaign run failed", "campaign", campaign.ID, "error", err)
			}
		}()
		h.sendJSON(w, http.StatusAccepted, map[string]string{"status": models.CampaignStatusSending})
	}
}

// CampaignReportResponse pairs campaign aggregates with the
// per-recipient delivery records
type CampaignReportResponse struct {
	Campaign   *models.Campaign        `json:"campaign"`
	Recipients []models.TrackingRecord `json:"recipients"`
}

// handleCampaignReport handles GET /api/campaigns/{id}/report
func (h *Handlers) handleCampaignReport(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	records, err := h.tracking.ListByCampaign(campaign.ID)
	if err != nil {
		h.logger.Error("failed to list recipients", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	h.sendJSON(w, http.StatusOK, CampaignReportResponse{Campaign: campaign, Recipients: records})
}

// handleCampaignArchive handles POST /api/campaigns/{id}/archive
func (h *Handlers) handleCampaignArchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// handleCampaignUnarchive handles POST /api/campaigns/{id}/unarchive
func (h *Handlers) handleCampaignUnarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handlers) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	campaign, err := h.campaigns.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get campaign")
		return
	}
	if campaign == nil {
		h.sendError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	if err := h.campaigns.SetArchived(campaign.ID, archived); err != nil {
		h.logger.Error("failed to update archived flag", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to update campaign")
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]bool{"archived": archived})
}
