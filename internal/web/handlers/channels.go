package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/dnscheck"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// ChannelRequest is the create/update payload. The password is write-only:
// responses never echo it back.
type ChannelRequest struct {
	Name         string   `json:"name"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	Username     string   `json:"username,omitempty"`
	Password     string   `json:"password,omitempty"`
	Security     string   `json:"security,omitempty"`
	FromEmail    string   `json:"from_email"`
	FromName     string   `json:"from_name,omitempty"`
	ReplyTo      string   `json:"reply_to,omitempty"`
	Purposes     []string `json:"purposes,omitempty"`
	IsDefault    bool     `json:"is_default"`
	IsActive     *bool    `json:"is_active,omitempty"`
	DKIMSelector string   `json:"dkim_selector,omitempty"`
	DKIMKeyFile  string   `json:"dkim_key_file,omitempty"`
}

func (req *ChannelRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Host == "" {
		return "host is required"
	}
	if req.Port <= 0 || req.Port > 65535 {
		return "port must be between 1 and 65535"
	}
	if _, err := mail.ParseAddress(req.FromEmail); err != nil {
		return "a valid from_email is required"
	}
	switch req.Security {
	case "", models.SecurityAuto, models.SecuritySSL, models.SecurityStartTLS, models.SecurityNone:
	default:
		return "security must be auto, ssl, starttls or none"
	}
	for _, p := range req.Purposes {
		switch p {
		case models.PurposeGeneral, models.PurposeMarketing, models.PurposeTransactional,
			models.PurposeNotifications, models.PurposePasswordReset:
		default:
			return "unknown purpose: " + p
		}
	}
	return ""
}

func (req *ChannelRequest) apply(c *models.Channel) {
	c.Name = req.Name
	c.Host = req.Host
	c.Port = req.Port
	c.Username = req.Username
	if req.Password != "" {
		c.Password = req.Password
	}
	c.Security = req.Security
	if c.Security == "" {
		c.Security = models.SecurityAuto
	}
	c.FromEmail = req.FromEmail
	c.FromName = req.FromName
	c.ReplyTo = req.ReplyTo
	c.IsDefault = req.IsDefault
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.DKIMSelector = req.DKIMSelector
	c.DKIMKeyFile = req.DKIMKeyFile

	purposes := req.Purposes
	if len(purposes) == 0 {
		purposes = []string{models.PurposeGeneral}
	}
	c.SetPurposes(purposes)
}

// handleChannelList handles GET /api/channels
func (h *Handlers) handleChannelList(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channels.List(models.ChannelFilter{
		Purpose: r.URL.Query().Get("purpose"),
	})
	if err != nil {
		h.logger.Error("failed to list channels", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to list channels")
		return
	}
	h.sendJSON(w, http.StatusOK, channels)
}

// handleChannelCreate handles POST /api/channels
func (h *Handlers) handleChannelCreate(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.sendError(w, http.StatusBadRequest, msg)
		return
	}

	channel := &models.Channel{IsActive: true}
	req.apply(channel)

	if err := h.channels.Create(channel); err != nil {
		h.logger.Error("failed to create channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to create channel")
		return
	}

	h.logger.Info("channel created", "id", channel.ID, "name", channel.Name)
	h.sendJSON(w, http.StatusCreated, channel)
}

// handleChannelGet handles GET /api/channels/{id}
func (h *Handlers) handleChannelGet(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channels.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get channel")
		return
	}
	if channel == nil {
		h.sendError(w, http.StatusNotFound, "Channel not found")
		return
	}
	h.sendJSON(w, http.StatusOK, channel)
}

// handleChannelUpdate handles PUT /api/channels/{id}. An empty password
// in the payload keeps the stored one.
func (h *Handlers) handleChannelUpdate(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channels.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get channel")
		return
	}
	if channel == nil {
		h.sendError(w, http.StatusNotFound, "Channel not found")
		return
	}

	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.sendError(w, http.StatusBadRequest, msg)
		return
	}

	req.apply(channel)
	if err := h.channels.Update(channel); err != nil {
		h.logger.Error("failed to update channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to update channel")
		return
	}
	h.sendJSON(w, http.StatusOK, channel)
}

// handleChannelDelete handles DELETE /api/channels/{id}
func (h *Handlers) handleChannelDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.channels.Delete(chi.URLParam(r, "id")); err != nil {
		h.logger.Error("failed to delete channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to delete channel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleChannelTest handles POST /api/channels/{id}/test: runs the
// two-stage diagnosis against the stored channel and returns the full
// log. The HTTP status is 200 either way; the body says what happened.
func (h *Handlers) handleChannelTest(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channels.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get channel")
		return
	}
	if channel == nil {
		h.sendError(w, http.StatusNotFound, "Channel not found")
		return
	}

	var req struct {
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := mail.ParseAddress(req.Recipient); err != nil {
		h.sendError(w, http.StatusBadRequest, "a valid recipient is required")
		return
	}

	log := h.harness.Diagnose(r.Context(), channel, req.Recipient)
	h.sendJSON(w, http.StatusOK, log)
}

// handleChannelDNS handles GET /api/channels/{id}/dns: looks up the
// MX, SPF, DKIM and DMARC posture of the channel's sender domain.
func (h *Handlers) handleChannelDNS(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channels.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to get channel", "error", err)
		h.sendError(w, http.StatusInternalServerError, "Failed to get channel")
		return
	}
	if channel == nil {
		h.sendError(w, http.StatusNotFound, "Channel not found")
		return
	}

	at := strings.LastIndex(channel.FromEmail, "@")
	if at < 0 {
		h.sendError(w, http.StatusUnprocessableEntity, "Channel has no sender domain")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	report, err := dnscheck.CheckSender(ctx, channel.FromEmail[at+1:], channel.DKIMSelector)
	if err != nil {
		h.sendError(w, http.StatusUnprocessableEntity, "Sender domain is not checkable: "+err.Error())
		return
	}
	h.sendJSON(w, http.StatusOK, report)
}
