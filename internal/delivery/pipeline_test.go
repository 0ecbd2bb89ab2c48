package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/mailer"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

type fakeResolver struct {
	channel *models.Channel
	err     error
}

func (f *fakeResolver) Resolve(purpose string) (*models.Channel, error) {
	return f.channel, f.err
}

type sentMessage struct {
	To      string
	Subject string
	HTML    string
}

// fakeTransport records sends and fails addresses listed in failFor
type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
}

func (f *fakeTransport) Send(ctx context.Context, channel *models.Channel, msg *mailer.Message) (*mailer.SendResult, error) {
	if err, ok := f.failFor[msg.To]; ok {
		return nil, err
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{To: msg.To, Subject: msg.Subject, HTML: msg.HTML})
	f.mu.Unlock()
	return &mailer.SendResult{MessageID: "<test@example.com>", Response: "accepted"}, nil
}

type fakeTracking struct {
	created []*models.TrackingRecord
	sent    []string
	failed  map[string]string
	fail    bool
}

func (f *fakeTracking) Create(t *models.TrackingRecord) error {
	if f.fail {
		return errors.New("insert failed")
	}
	t.ID = uuid.New().String()
	f.created = append(f.created, t)
	return nil
}

func (f *fakeTracking) MarkSent(id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeTracking) MarkFailed(id, errMsg string) error {
	if f.failed == nil {
		f.failed = make(map[string]string)
	}
	f.failed[id] = errMsg
	return nil
}

type fakeCampaigns struct {
	recipients, sent, failed int
}

func (f *fakeCampaigns) AddTotals(id string, recipients, sent, failed int) error {
	f.recipients += recipients
	f.sent += sent
	f.failed += failed
	return nil
}

type fakeSuppression struct {
	blocked map[string]bool
}

func (f *fakeSuppression) IsSuppressed(email string) (bool, error) {
	return f.blocked[strings.ToLower(email)], nil
}

func testLead(name, email string) models.Lead {
	return models.Lead{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Status:    models.LeadStatusNew,
		CreatedAt: time.Now(),
	}
}

func testCampaign() *models.Campaign {
	return &models.Campaign{
		ID:       uuid.New().String(),
		Name:     "spring-promo",
		Subject:  "Hello {name}",
		BodyHTML: `<html><body><p>Hi {name}</p><a href="https://example.com/offer">Offer</a></body></html>`,
		BodyText: "Hi {name}",
		Purpose:  models.PurposeMarketing,
		Mode:     models.ModeNow,
		Status:   models.CampaignStatusSending,
	}
}

func newTestPipeline(transport Transport, tracking TrackingStore, campaigns CampaignStore, sup Suppressor) *Pipeline {
	channel := &models.Channel{ID: "ch", Name: "primary", Host: "smtp.example.com", Port: 587, FromEmail: "news@example.com"}
	return NewPipeline(PipelineOptions{
		Resolver:    &fakeResolver{channel: channel},
		Transport:   transport,
		Tracking:    tracking,
		Campaigns:   campaigns,
		Suppression: sup,
		BaseURL:     "https://socialbluepro.com",
		SendsPerSec: 10000, // no pacing in tests
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestDeliverFailureIsolation(t *testing.T) {
	transport := &fakeTransport{failFor: map[string]error{
		"third@example.com": errors.New("550 5.1.1 mailbox unavailable"),
	}}
	tracking := &fakeTracking{}
	campaigns := &fakeCampaigns{}
	pipeline := newTestPipeline(transport, tracking, campaigns, &fakeSuppression{})

	recipients := []models.Lead{
		testLead("One", "first@example.com"),
		testLead("Two", "second@example.com"),
		testLead("Three", "third@example.com"),
		testLead("Four", "fourth@example.com"),
		testLead("Five", "fifth@example.com"),
	}

	report, err := pipeline.Deliver(context.Background(), testCampaign(), recipients)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if report.Sent != 4 {
		t.Errorf("sent = %d, want 4", report.Sent)
	}
	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}
	if len(report.Errors) != 1 || report.Errors[0].Email != "third@example.com" {
		t.Errorf("errors = %+v", report.Errors)
	}
	if report.Errors[0].Category != mailer.CategoryRejected {
		t.Errorf("category = %q", report.Errors[0].Category)
	}

	// Recipients after the failure still got their mail
	if transport.sent[len(transport.sent)-1].To != "fifth@example.com" {
		t.Error("delivery should continue past a failed recipient")
	}
	if campaigns.recipients != 5 || campaigns.sent != 4 || campaigns.failed != 1 {
		t.Errorf("campaign totals = %+v", campaigns)
	}
	if len(tracking.failed) != 1 {
		t.Errorf("failed tracking records = %d, want 1", len(tracking.failed))
	}
}

func TestDeliverPersonalizesPerRecipient(t *testing.T) {
	transport := &fakeTransport{}
	tracking := &fakeTracking{}
	pipeline := newTestPipeline(transport, tracking, &fakeCampaigns{}, &fakeSuppression{})

	recipients := []models.Lead{
		testLead("Maria", "maria@example.com"),
		testLead("John", "john@example.com"),
	}

	if _, err := pipeline.Deliver(context.Background(), testCampaign(), recipients); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if transport.sent[0].Subject != "Hello Maria" || transport.sent[1].Subject != "Hello John" {
		t.Errorf("subjects = %q, %q", transport.sent[0].Subject, transport.sent[1].Subject)
	}

	// Each message carries its own tracking identifier
	for i, msg := range transport.sent {
		wantID := tracking.created[i].ID
		if !strings.Contains(msg.HTML, "/track/open/"+wantID) {
			t.Errorf("message %d missing its open beacon", i)
		}
		if !strings.Contains(msg.HTML, "/track/click/"+wantID) {
			t.Errorf("message %d missing rewritten links", i)
		}
	}
	if tracking.created[0].ID == tracking.created[1].ID {
		t.Error("tracking identifiers must be unique per recipient")
	}
}

func TestDeliverSkipsSuppressed(t *testing.T) {
	transport := &fakeTransport{}
	tracking := &fakeTracking{}
	sup := &fakeSuppression{blocked: map[string]bool{"optout@example.com": true}}
	pipeline := newTestPipeline(transport, tracking, &fakeCampaigns{}, sup)

	recipients := []models.Lead{
		testLead("Stay", "stay@example.com"),
		testLead("Gone", "optout@example.com"),
	}

	report, err := pipeline.Deliver(context.Background(), testCampaign(), recipients)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if report.Sent != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v", report)
	}
	for _, msg := range transport.sent {
		if msg.To == "optout@example.com" {
			t.Error("suppressed recipient must not receive mail")
		}
	}

	// Skip leaves an audit record
	var found bool
	for _, rec := range tracking.created {
		if rec.Email == "optout@example.com" && rec.Status == models.TrackingStatusSkipped {
			found = true
		}
	}
	if !found {
		t.Error("expected a skipped tracking record for the suppressed address")
	}
}

func TestDeliverUntrackedOnAllocationFailure(t *testing.T) {
	transport := &fakeTransport{}
	tracking := &fakeTracking{fail: true}
	pipeline := newTestPipeline(transport, tracking, &fakeCampaigns{}, &fakeSuppression{})

	report, err := pipeline.Deliver(context.Background(), testCampaign(), []models.Lead{
		testLead("Maria", "maria@example.com"),
	})
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if report.Sent != 1 {
		t.Fatalf("sent = %d, want 1", report.Sent)
	}

	// Untracked messages go out without beacon or rewritten links
	msg := transport.sent[0]
	if strings.Contains(msg.HTML, "/track/") {
		t.Error("untracked message must not carry tracking URLs")
	}
	if !strings.Contains(msg.HTML, `href="https://example.com/offer"`) {
		t.Error("original links must survive untracked")
	}
}

func TestDeliverEmptyRecipients(t *testing.T) {
	pipeline := newTestPipeline(&fakeTransport{}, &fakeTracking{}, &fakeCampaigns{}, &fakeSuppression{})

	_, err := pipeline.Deliver(context.Background(), testCampaign(), nil)
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("err = %v, want ErrNoRecipients", err)
	}
}

func TestDeliverUnresolvableChannel(t *testing.T) {
	pipeline := NewPipeline(PipelineOptions{
		Resolver:    &fakeResolver{err: mailer.ErrNoChannelConfigured},
		Transport:   &fakeTransport{},
		Tracking:    &fakeTracking{},
		Campaigns:   &fakeCampaigns{},
		Suppression: &fakeSuppression{},
		BaseURL:     "https://socialbluepro.com",
		SendsPerSec: 10000,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := pipeline.Deliver(context.Background(), testCampaign(), []models.Lead{
		testLead("Maria", "maria@example.com"),
	})
	if !errors.Is(err, mailer.ErrNoChannelConfigured) {
		t.Fatalf("err = %v, want ErrNoChannelConfigured", err)
	}
}

func TestDeliverSequentialOrder(t *testing.T) {
	transport := &fakeTransport{}
	pipeline := newTestPipeline(transport, &fakeTracking{}, &fakeCampaigns{}, &fakeSuppression{})

	var recipients []models.Lead
	for i := 0; i < 10; i++ {
		recipients = append(recipients, testLead("Lead", fmt.Sprintf("lead%d@example.com", i)))
	}

	if _, err := pipeline.Deliver(context.Background(), testCampaign(), recipients); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	for i, msg := range transport.sent {
		if want := fmt.Sprintf("lead%d@example.com", i); msg.To != want {
			t.Fatalf("send %d went to %s, want %s", i, msg.To, want)
		}
	}
}
