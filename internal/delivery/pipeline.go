package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/mailer"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/metrics"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/template"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/tracking"
)

// ErrNoRecipients is returned when a campaign resolves to an empty audience
var ErrNoRecipients = errors.New("campaign has no recipients")

// Transport is the sending side of the pipeline
type Transport interface {
	Send(ctx context.Context, channel *models.Channel, msg *mailer.Message) (*mailer.SendResult, error)
}

// ChannelResolver picks the channel for a campaign's purpose
type ChannelResolver interface {
	Resolve(purpose string) (*models.Channel, error)
}

// Suppressor answers whether an address opted out
type Suppressor interface {
	IsSuppressed(email string) (bool, error)
}

// TrackingStore persists per-recipient delivery records
type TrackingStore interface {
	Create(t *models.TrackingRecord) error
	MarkSent(id string) error
	MarkFailed(id, errMsg string) error
}

// CampaignStore updates aggregate campaign counters
type CampaignStore interface {
	AddTotals(id string, recipients, sent, failed int) error
}

// RecipientError is one recipient's delivery failure within a run
type RecipientError struct {
	Email    string `json:"email"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Report summarizes one pipeline run
type Report struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
	Errors  []RecipientError `json:"errors,omitempty"`
}

// Pipeline delivers a campaign to its recipients one at a time. Sends
// are strictly sequential: a shared hosting SMTP account throttles
// aggressively, so pacing beats parallelism here.
type Pipeline struct {
	resolver    ChannelResolver
	transport   Transport
	tracking    TrackingStore
	campaigns   CampaignStore
	suppression Suppressor
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// PipelineOptions configures a delivery pipeline
type PipelineOptions struct {
	Resolver    ChannelResolver
	Transport   Transport
	Tracking    TrackingStore
	Campaigns   CampaignStore
	Suppression Suppressor
	Metrics     *metrics.Metrics
	BaseURL     string
	SendsPerSec float64
	Logger      *slog.Logger
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.SendsPerSec <= 0 {
		opts.SendsPerSec = 10
	}
	return &Pipeline{
		resolver:    opts.Resolver,
		transport:   opts.Transport,
		tracking:    opts.Tracking,
		campaigns:   opts.Campaigns,
		suppression: opts.Suppression,
		metrics:     opts.Metrics,
		limiter:     rate.NewLimiter(rate.Limit(opts.SendsPerSec), 1),
		baseURL:     opts.BaseURL,
		logger:      opts.Logger.With("component", "pipeline"),
	}
}

// Deliver sends a campaign to the given recipients. One recipient's
// failure never aborts the run; it is recorded and the loop moves on.
// The returned error covers only conditions that prevent the run from
// starting at all.
func (p *Pipeline) Deliver(ctx context.Context, campaign *models.Campaign, recipients []models.Lead) (*Report, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	channel, err := p.resolver.Resolve(campaign.Purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel for campaign %s: %w", campaign.ID, err)
	}

	p.logger.Info("campaign delivery started",
		"campaign", campaign.ID,
		"channel", channel.Name,
		"recipients", len(recipients),
	)

	report := &Report{}
	for i := range recipients {
		if err := p.limiter.Wait(ctx); err != nil {
			// ctx cancelled mid-run: stop here, keep what we recorded
			p.logger.Warn("campaign delivery interrupted",
				"campaign", campaign.ID,
				"delivered", report.Sent,
				"error", err,
			)
			break
		}
		p.deliverOne(ctx, campaign, channel, &recipients[i], report)
	}

	if err := p.campaigns.AddTotals(campaign.ID, len(recipients), report.Sent, report.Failed); err != nil {
		p.logger.Error("failed to update campaign totals", "campaign", campaign.ID, "error", err)
	}

	p.logger.Info("campaign delivery finished",
		"campaign", campaign.ID,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

// deliverOne runs the full per-recipient sequence: render, allocate a
// tracking record, inject tracking, consult suppression, transmit.
func (p *Pipeline) deliverOne(ctx context.Context, campaign *models.Campaign, channel *models.Channel, lead *models.Lead, report *Report) {
	fields := lead.MergeFields()
	subject := template.Render(campaign.Subject, fields)
	htmlBody := template.Render(campaign.BodyHTML, fields)
	textBody := template.Render(campaign.BodyText, fields)

	suppressed, err := p.suppression.IsSuppressed(lead.Email)
	if err != nil {
		p.logger.Error("suppression lookup failed, sending anyway", "email", lead.Email, "error", err)
		suppressed = false
	}

	record := &models.TrackingRecord{
		CampaignID:      campaign.ID,
		LeadID:          lead.ID,
		Email:           lead.Email,
		RenderedSubject: subject,
	}
	if suppressed {
		record.Status = models.TrackingStatusSkipped
	}

	tracked := true
	if err := p.tracking.Create(record); err != nil {
		// No identifier means no tracking for this message, but the
		// recipient still gets their mail
		p.logger.Error("failed to allocate tracking record, sending untracked",
			"campaign", campaign.ID,
			"email", lead.Email,
			"error", err,
		)
		tracked = false
	}

	if suppressed {
		report.Skipped++
		if p.metrics != nil {
			p.metrics.MessagesSkippedTotal.Inc()
		}
		p.logger.Debug("recipient suppressed", "campaign", campaign.ID, "email", lead.Email)
		return
	}

	if tracked && htmlBody != "" {
		htmlBody = tracking.RewriteLinks(htmlBody, p.baseURL, record.ID)
		htmlBody = tracking.InjectOpenBeacon(htmlBody, p.baseURL, record.ID)
	}

	msg := &mailer.Message{
		To:      lead.Email,
		ToName:  lead.Name,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}
	if tracked {
		msg.Headers = map[string]string{
			"List-Unsubscribe": fmt.Sprintf("<%s/unsubscribe/%s>", p.baseURL, record.ID),
		}
	}

	if _, err := p.transport.Send(ctx, channel, msg); err != nil {
		classified := mailer.ClassifyError(err)
		report.Failed++
		report.Errors = append(report.Errors, RecipientError{
			Email:    lead.Email,
			Category: classified.Category,
			Message:  classified.Message,
		})
		if tracked {
			if err := p.tracking.MarkFailed(record.ID, classified.Message); err != nil {
				p.logger.Error("failed to record delivery failure", "tracking_id", record.ID, "error", err)
			}
		}
		if p.metrics != nil {
			p.metrics.MessagesFailedTotal.WithLabelValues(channel.Name, classified.Category).Inc()
		}
		p.logger.Warn("delivery failed",
			"campaign", campaign.ID,
			"email", lead.Email,
			"category", classified.Category,
			"error", err,
		)
		return
	}

	report.Sent++
	if tracked {
		if err := p.tracking.MarkSent(record.ID); err != nil {
			p.logger.Error("failed to record delivery", "tracking_id", record.ID, "error", err)
		}
	}
	if p.metrics != nil {
		p.metrics.MessagesSentTotal.WithLabelValues(channel.Name).Inc()
	}
}
