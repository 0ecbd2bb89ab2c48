package repository

import (
	"testing"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

func testChannel(name string) *models.Channel {
	c := &models.Channel{
		Name:      name,
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer",
		Password:  "secret",
		Security:  models.SecurityStartTLS,
		FromEmail: "hello@example.com",
		FromName:  "Example",
		IsActive:  true,
	}
	c.SetPurposes([]string{models.PurposeMarketing})
	return c
}

func TestChannelCreateAndGet(t *testing.T) {
	database := setupTestDB(t)
	repo := NewChannelRepository(database)

	ch := testChannel("primary")
	if err := repo.Create(ch); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ch.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := repo.GetByID(ch.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() returned nil for existing channel")
	}
	if got.Host != "smtp.example.com" || got.Port != 587 {
		t.Errorf("GetByID() host/port = %s/%d, want smtp.example.com/587", got.Host, got.Port)
	}
	if !got.HasPurpose(models.PurposeMarketing) {
		t.Error("GetByID() lost purpose tags")
	}
	if got.HasPurpose(models.PurposeTransactional) {
		t.Error("HasPurpose() matched undeclared purpose")
	}
}

func TestChannelGetMissing(t *testing.T) {
	database := setupTestDB(t)
	repo := NewChannelRepository(database)

	got, err := repo.GetByID("nope")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetByID() = %+v, want nil", got)
	}
}

func TestChannelListActiveOrdering(t *testing.T) {
	database := setupTestDB(t)
	repo := NewChannelRepository(database)

	first := testChannel("first")
	if err := repo.Create(first); err != nil {
		t.Fatal(err)
	}
	// Force distinct created_at values; sqlite timestamps are second-granular
	// in comparisons only when equal, so set them explicitly.
	if _, err := database.Exec("UPDATE channels SET created_at = ? WHERE id = ?",
		time.Now().Add(-time.Hour), first.ID); err != nil {
		t.Fatal(err)
	}

	second := testChannel("second")
	if err := repo.Create(second); err != nil {
		t.Fatal(err)
	}

	inactive := testChannel("inactive")
	inactive.IsActive = false
	if err := repo.Create(inactive); err != nil {
		t.Fatal(err)
	}

	channels, err := repo.ListActive()
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("ListActive() returned %d channels, want 2", len(channels))
	}
	if channels[0].Name != "second" {
		t.Errorf("ListActive() first = %s, want second (most recently created)", channels[0].Name)
	}
}

func TestChannelListPurposeFilter(t *testing.T) {
	database := setupTestDB(t)
	repo := NewChannelRepository(database)

	marketing := testChannel("newsletter")
	if err := repo.Create(marketing); err != nil {
		t.Fatal(err)
	}

	receipts := testChannel("receipts")
	receipts.SetPurposes([]string{models.PurposeTransactional})
	if err := repo.Create(receipts); err != nil {
		t.Fatal(err)
	}

	channels, err := repo.List(models.ChannelFilter{Purpose: models.PurposeMarketing})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("List(Purpose=marketing) returned %d channels, want 1", len(channels))
	}
	if channels[0].Name != "newsletter" {
		t.Errorf("List(Purpose=marketing) returned %s, want newsletter", channels[0].Name)
	}

	channels, err = repo.List(models.ChannelFilter{Purpose: models.PurposeNotifications})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(channels) != 0 {
		t.Errorf("List(Purpose=notifications) returned %d channels, want 0", len(channels))
	}

	// Limit applies after the purpose filter
	channels, err = repo.List(models.ChannelFilter{Purpose: models.PurposeMarketing, Limit: 5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(channels) != 1 {
		t.Errorf("List(Purpose+Limit) returned %d channels, want 1", len(channels))
	}
}

func TestChannelUpdateAndDelete(t *testing.T) {
	database := setupTestDB(t)
	repo := NewChannelRepository(database)

	ch := testChannel("edit-me")
	if err := repo.Create(ch); err != nil {
		t.Fatal(err)
	}

	ch.Host = "smtp2.example.com"
	ch.IsDefault = true
	if err := repo.Update(ch); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ch.ID)
	if got.Host != "smtp2.example.com" || !got.IsDefault {
		t.Errorf("Update() not persisted: %+v", got)
	}

	if err := repo.Delete(ch.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ = repo.GetByID(ch.ID)
	if got != nil {
		t.Error("Delete() left the channel behind")
	}
}
