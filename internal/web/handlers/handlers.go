package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/captcha"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/delivery"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/mailer"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/metrics"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/ratelimit"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/repository"
)

// Handlers is the JSON API surface over the engine
type Handlers struct {
	leads     *repository.LeadRepository
	channels  *repository.ChannelRepository
	segments  *repository.SegmentRepository
	campaigns *repository.CampaignRepository
	tracking  *repository.TrackingRepository

	dispatcher *delivery.Dispatcher
	harness    *mailer.Harness
	captcha    captcha.Provider
	throttle   *ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Options collects the handler dependencies
type Options struct {
	Leads      *repository.LeadRepository
	Channels   *repository.ChannelRepository
	Segments   *repository.SegmentRepository
	Campaigns  *repository.CampaignRepository
	Tracking   *repository.TrackingRepository
	Dispatcher *delivery.Dispatcher
	Harness    *mailer.Harness
	Captcha    captcha.Provider
	Throttle   *ratelimit.Limiter
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

func New(opts Options) *Handlers {
	return &Handlers{
		leads:      opts.Leads,
		channels:   opts.Channels,
		segments:   opts.Segments,
		campaigns:  opts.Campaigns,
		tracking:   opts.Tracking,
		dispatcher: opts.Dispatcher,
		harness:    opts.Harness,
		captcha:    opts.Captcha,
		throttle:   opts.Throttle,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "api"),
	}
}

// Routes mounts the API routes
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.With(h.throttle.Middleware).Post("/", h.handleLeadSubmit)
			r.Get("/", h.handleLeadList)
			r.Get("/{id}", h.handleLeadGet)
			r.Put("/{id}/status", h.handleLeadStatus)
			r.Put("/{id}/assign", h.handleLeadAssign)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", h.handleChannelList)
			r.Post("/", h.handleChannelCreate)
			r.Get("/{id}", h.handleChannelGet)
			r.Put("/{id}", h.handleChannelUpdate)
			r.Delete("/{id}", h.handleChannelDelete)
			r.Post("/{id}/test", h.handleChannelTest)
			r.Get("/{id}/dns", h.handleChannelDNS)
		})

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", h.handleSegmentList)
			r.Post("/", h.handleSegmentCreate)
			r.Get("/{id}", h.handleSegmentGet)
			r.Put("/{id}", h.handleSegmentUpdate)
			r.Delete("/{id}", h.handleSegmentDelete)
			r.Post("/{id}/refresh", h.handleSegmentRefresh)
			r.Get("/{id}/preview", h.handleSegmentPreview)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.handleCampaignList)
			r.Post("/", h.handleCampaignCreate)
			r.Get("/{id}", h.handleCampaignGet)
			r.Delete("/{id}", h.handleCampaignDelete)
			r.Post("/{id}/send", h.handleCampaignSend)
			r.Get("/{id}/report", h.handleCampaignReport)
			r.Post("/{id}/archive", h.handleCampaignArchive)
			r.Post("/{id}/unarchive", h.handleCampaignUnarchive)
		})
	})

	r.Get("/health", h.handleHealth)
}

// ErrorResponse is the error response body
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{Error: message})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
