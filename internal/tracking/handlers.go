package tracking

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/metrics"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/repository"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/suppression"
)

// transparentGIF is a 1x1 transparent image returned by the open endpoint
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler serves the tracking and unsubscribe endpoints
type Handler struct {
	tracking    *repository.TrackingRepository
	campaigns   *repository.CampaignRepository
	suppression *suppression.Store
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewHandler(
	tracking *repository.TrackingRepository,
	campaigns *repository.CampaignRepository,
	supp *suppression.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tracking:    tracking,
		campaigns:   campaigns,
		suppression: supp,
		metrics:     m,
		logger:      logger.With("component", "tracking"),
	}
}

// Routes mounts the public tracking endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Get("/track/open/{id}", h.Open)
	r.Get("/track/click/{id}", h.Click)
	r.Get("/unsubscribe/{id}", h.Unsubscribe)
}

// Open records an open and returns the transparent pixel. Unknown
// identifiers still get the pixel so broken beacons never render as a
// broken image in the recipient's client.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if ok, err := h.tracking.RecordOpen(id); err != nil {
		h.logger.Error("failed to record open", "tracking_id", id, "error", err)
	} else if ok {
		if rec, err := h.tracking.GetByID(id); err == nil && rec != nil {
			if err := h.campaigns.IncrementOpens(rec.CampaignID); err != nil {
				h.logger.Error("failed to increment campaign opens", "campaign_id", rec.CampaignID, "error", err)
			}
		}
		h.metrics.OpensTotal.Inc()
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(transparentGIF)
}

// Click records a click and redirects to the original target. Only
// absolute http(s) targets are accepted; anything else is rejected to
// keep the endpoint from becoming an open redirect for other schemes.
func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := r.URL.Query().Get("url")

	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		http.Error(w, "invalid redirect target", http.StatusBadRequest)
		return
	}

	if ok, err := h.tracking.RecordClick(id); err != nil {
		h.logger.Error("failed to record click", "tracking_id", id, "error", err)
	} else if ok {
		if rec, err := h.tracking.GetByID(id); err == nil && rec != nil {
			if err := h.campaigns.IncrementClicks(rec.CampaignID); err != nil {
				h.logger.Error("failed to increment campaign clicks", "campaign_id", rec.CampaignID, "error", err)
			}
		}
		h.metrics.ClicksTotal.Inc()
	}

	http.Redirect(w, r, parsed.String(), http.StatusFound)
}

// Unsubscribe suppresses the recipient behind a tracking identifier
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.tracking.GetByID(id)
	if err != nil {
		h.logger.Error("failed to load tracking record", "tracking_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.suppression.Add(rec.Email, "unsubscribe"); err != nil {
		h.logger.Error("failed to suppress recipient", "email", rec.Email, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.metrics.UnsubscribesTotal.Inc()
	h.logger.Info("recipient unsubscribed", "tracking_id", id)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	masked := maskEmail(rec.Email)
	w.Write([]byte("<html><body><h3>You have been unsubscribed</h3><p>" +
		masked + " will no longer receive marketing email from us.</p></body></html>"))
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
