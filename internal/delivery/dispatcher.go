package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/metrics"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/segment"
)

// CampaignSource lists campaigns due for delivery
type CampaignSource interface {
	ListDue(now time.Time) ([]models.Campaign, error)
	UpdateStatus(id, status string) error
}

// LeadSource supplies the full lead pool for audience materialization
type LeadSource interface {
	All() ([]models.Lead, error)
}

// DeliveryLog answers what a campaign has already sent
type DeliveryLog interface {
	SentLeadIDs(campaignID string) (map[string]bool, error)
	CountSentSince(campaignID string, since time.Time) (int, error)
}

// Dispatcher is the background worker that picks up scheduled campaigns
// when they become due and advances batch campaigns within their daily
// cap. Immediate sends go through RunCampaign directly.
type Dispatcher struct {
	campaigns CampaignSource
	leads     LeadSource
	log       DeliveryLog
	pipeline  *Pipeline
	metrics   *metrics.Metrics
	interval  time.Duration
	logger    *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(campaigns CampaignSource, leads LeadSource, log DeliveryLog, pipeline *Pipeline, m *metrics.Metrics, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Dispatcher{
		campaigns: campaigns,
		leads:     leads,
		log:       log,
		pipeline:  pipeline,
		metrics:   m,
		interval:  interval,
		logger:    logger.With("component", "dispatcher"),
	}
}

// Start launches the dispatch loop
func (d *Dispatcher) Start(ctx context.Context) {
	d.stopCh = make(chan struct{})
	d.logger.Info("starting campaign dispatcher", "interval", d.interval)

	d.wg.Add(1)
	go d.run(ctx)
}

// Stop stops the dispatcher gracefully
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping campaign dispatcher")
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("campaign dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick runs one dispatch pass over the due campaigns
func (d *Dispatcher) tick(ctx context.Context) {
	due, err := d.campaigns.ListDue(time.Now())
	if err != nil {
		d.logger.Error("failed to list due campaigns", "error", err)
		return
	}

	for i := range due {
		if err := d.RunCampaign(ctx, &due[i]); err != nil {
			d.logger.Error("campaign run failed", "campaign", due[i].ID, "error", err)
		}
	}
}

// RunCampaign materializes a campaign's audience and delivers to it.
// Recipients already sent to in earlier runs are excluded, which makes
// re-running a partially delivered campaign safe. Batch campaigns take
// at most their daily limit per calendar day and stay in sending status
// until the audience is exhausted.
func (d *Dispatcher) RunCampaign(ctx context.Context, campaign *models.Campaign) error {
	criteria, err := campaign.ParseAudience()
	if err != nil {
		d.campaigns.UpdateStatus(campaign.ID, models.CampaignStatusFailed)
		return fmt.Errorf("campaign %s has invalid audience criteria: %w", campaign.ID, err)
	}

	pool, err := d.leads.All()
	if err != nil {
		return fmt.Errorf("failed to load lead pool: %w", err)
	}
	audience := segment.Materialize(pool, criteria, time.Now())

	alreadySent, err := d.log.SentLeadIDs(campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to load sent recipients: %w", err)
	}
	pending := audience[:0:0]
	for _, lead := range audience {
		if !alreadySent[lead.ID] {
			pending = append(pending, lead)
		}
	}

	if len(pending) == 0 {
		d.finish(campaign, models.CampaignStatusSent)
		d.logger.Info("campaign has no pending recipients", "campaign", campaign.ID)
		return nil
	}

	pendingTotal := len(pending)
	if campaign.Mode == models.ModeBatch && campaign.DailyLimit > 0 {
		remaining, err := d.dailyRemaining(campaign)
		if err != nil {
			return err
		}
		if remaining <= 0 {
			d.logger.Debug("daily limit reached", "campaign", campaign.ID, "limit", campaign.DailyLimit)
			return nil
		}
		if len(pending) > remaining {
			pending = pending[:remaining]
		}
	}

	if campaign.Status != models.CampaignStatusSending {
		if err := d.campaigns.UpdateStatus(campaign.ID, models.CampaignStatusSending); err != nil {
			return fmt.Errorf("failed to mark campaign sending: %w", err)
		}
		if d.metrics != nil {
			d.metrics.CampaignsStartedTotal.Inc()
		}
	}

	report, err := d.pipeline.Deliver(ctx, campaign, pending)
	if err != nil {
		if errors.Is(err, ErrNoRecipients) {
			d.finish(campaign, models.CampaignStatusSent)
			return nil
		}
		d.finish(campaign, models.CampaignStatusFailed)
		return err
	}

	// Batch campaigns with audience left keep sending across days
	if campaign.Mode == models.ModeBatch && len(pending) < pendingTotal {
		d.logger.Info("batch slice delivered",
			"campaign", campaign.ID,
			"sent", report.Sent,
			"failed", report.Failed,
		)
		return nil
	}

	status := models.CampaignStatusSent
	if report.Sent == 0 && report.Failed > 0 {
		status = models.CampaignStatusFailed
	}
	d.finish(campaign, status)
	return nil
}

func (d *Dispatcher) finish(campaign *models.Campaign, status string) {
	if err := d.campaigns.UpdateStatus(campaign.ID, status); err != nil {
		d.logger.Error("failed to finalize campaign status", "campaign", campaign.ID, "error", err)
		return
	}
	if d.metrics != nil {
		d.metrics.CampaignsCompletedTotal.WithLabelValues(status).Inc()
	}
}

// dailyRemaining computes how many sends the daily cap still allows today
func (d *Dispatcher) dailyRemaining(campaign *models.Campaign) (int, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sentToday, err := d.log.CountSentSince(campaign.ID, startOfDay)
	if err != nil {
		return 0, fmt.Errorf("failed to count today's sends: %w", err)
	}
	return campaign.DailyLimit - sentToday, nil
}
