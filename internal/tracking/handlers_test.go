package tracking

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/db"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/metrics"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/repository"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/suppression"
)

type handlerEnv struct {
	router    *chi.Mux
	tracking  *repository.TrackingRepository
	campaigns *repository.CampaignRepository
	supp      *suppression.Store
	campaign  *models.Campaign
	record    *models.TrackingRecord
}

func setupHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	supp, err := suppression.Open(filepath.Join(t.TempDir(), "suppression.db"))
	if err != nil {
		t.Fatalf("failed to open suppression store: %v", err)
	}
	t.Cleanup(func() { supp.Close() })

	trackingRepo := repository.NewTrackingRepository(database.DB)
	campaignRepo := repository.NewCampaignRepository(database.DB)
	leadRepo := repository.NewLeadRepository(database.DB)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(trackingRepo, campaignRepo, supp, metrics.New(), logger)
	router := chi.NewRouter()
	h.Routes(router)

	campaign := &models.Campaign{Name: "spring promo", Subject: "Hello {name}"}
	if err := campaignRepo.Create(campaign); err != nil {
		t.Fatal(err)
	}
	lead := &models.Lead{Name: "Maria", Email: "maria@example.com"}
	if err := leadRepo.Create(lead); err != nil {
		t.Fatal(err)
	}
	record := &models.TrackingRecord{
		CampaignID:      campaign.ID,
		LeadID:          lead.ID,
		Email:           lead.Email,
		RenderedSubject: "Hello Maria",
	}
	if err := trackingRepo.Create(record); err != nil {
		t.Fatal(err)
	}

	return &handlerEnv{
		router:    router,
		tracking:  trackingRepo,
		campaigns: campaignRepo,
		supp:      supp,
		campaign:  campaign,
		record:    record,
	}
}

func (env *handlerEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOpenRecordsAndReturnsPixel(t *testing.T) {
	env := setupHandlerEnv(t)

	resp := env.get(t, "/track/open/"+env.record.ID)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("Content-Type = %q, want image/gif", ct)
	}
	if !bytes.Equal(resp.Body.Bytes(), transparentGIF) {
		t.Error("body is not the transparent pixel")
	}

	rec, err := env.tracking.GetByID(env.record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Opens != 1 {
		t.Errorf("record opens = %d, want 1", rec.Opens)
	}

	campaign, err := env.campaigns.GetByID(env.campaign.ID)
	if err != nil {
		t.Fatal(err)
	}
	if campaign.Opens != 1 {
		t.Errorf("campaign opens = %d, want 1", campaign.Opens)
	}
}

func TestOpenUnknownIDStillReturnsPixel(t *testing.T) {
	env := setupHandlerEnv(t)

	resp := env.get(t, "/track/open/no-such-id")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if !bytes.Equal(resp.Body.Bytes(), transparentGIF) {
		t.Error("unknown identifier should still get the pixel")
	}
}

func TestClickRedirectsAndRecords(t *testing.T) {
	env := setupHandlerEnv(t)

	target := "https://example.com/offer?utm=spring"
	resp := env.get(t, "/track/click/"+env.record.ID+"?url="+url.QueryEscape(target))
	if resp.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != target {
		t.Errorf("Location = %q, want %q", loc, target)
	}

	rec, err := env.tracking.GetByID(env.record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Clicks != 1 {
		t.Errorf("record clicks = %d, want 1", rec.Clicks)
	}

	campaign, err := env.campaigns.GetByID(env.campaign.ID)
	if err != nil {
		t.Fatal(err)
	}
	if campaign.Clicks != 1 {
		t.Errorf("campaign clicks = %d, want 1", campaign.Clicks)
	}
}

func TestClickRejectsBadTargets(t *testing.T) {
	env := setupHandlerEnv(t)

	tests := []struct {
		name   string
		target string
	}{
		{"relative", "/contact"},
		{"mailto", "mailto:sales@example.com"},
		{"javascript", "javascript:alert(1)"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.get(t, "/track/click/"+env.record.ID+"?url="+url.QueryEscape(tt.target))
			if resp.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.Code)
			}
		})
	}

	rec, err := env.tracking.GetByID(env.record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Clicks != 0 {
		t.Errorf("rejected targets must not count clicks, got %d", rec.Clicks)
	}
}

func TestUnsubscribeSuppressesRecipient(t *testing.T) {
	env := setupHandlerEnv(t)

	resp := env.get(t, "/unsubscribe/"+env.record.ID)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("unsubscribed")) {
		t.Error("response should confirm the unsubscribe")
	}

	suppressed, err := env.supp.IsSuppressed("maria@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !suppressed {
		t.Error("recipient should be suppressed after unsubscribing")
	}
}

func TestUnsubscribeUnknownID(t *testing.T) {
	env := setupHandlerEnv(t)

	resp := env.get(t, "/unsubscribe/no-such-id")
	if resp.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.Code)
	}
}
