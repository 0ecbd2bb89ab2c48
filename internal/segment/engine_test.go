package segment

import (
	"testing"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

func leadAged(days int, status string) models.Lead {
	now := time.Now()
	return models.Lead{
		Name:      "Test",
		Email:     "test@example.com",
		Status:    status,
		CreatedAt: now.AddDate(0, 0, -days),
	}
}

func TestMatchesPresets(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		lead   models.Lead
		preset string
		want   bool
	}{
		{"new lead today is hot", leadAged(0, models.LeadStatusNew), models.PresetHot, true},
		{"contacted at 30 days is hot", leadAged(30, models.LeadStatusContacted), models.PresetHot, true},
		{"closed lead never hot", leadAged(5, models.LeadStatusClosed), models.PresetHot, false},
		{"31 days is not hot", leadAged(31, models.LeadStatusNew), models.PresetHot, false},

		{"31 days is warm", leadAged(31, models.LeadStatusNew), models.PresetWarm, true},
		{"60 days is warm", leadAged(60, models.LeadStatusContacted), models.PresetWarm, true},
		{"61 days is not warm", leadAged(61, models.LeadStatusNew), models.PresetWarm, false},
		{"closed lead never warm", leadAged(45, models.LeadStatusClosed), models.PresetWarm, false},

		{"95 days is cold regardless of status", leadAged(95, models.LeadStatusClosed), models.PresetCold, true},
		{"95 days new is cold", leadAged(95, models.LeadStatusNew), models.PresetCold, true},
		{"90 days is not cold", leadAged(90, models.LeadStatusNew), models.PresetCold, false},

		{"new at 8 days is no_conversion", leadAged(8, models.LeadStatusNew), models.PresetNoConversion, true},
		{"new at 7 days is not no_conversion", leadAged(7, models.LeadStatusNew), models.PresetNoConversion, false},
		{"contacted at 8 days is not no_conversion", leadAged(8, models.LeadStatusContacted), models.PresetNoConversion, false},

		{"unknown preset matches nothing", leadAged(10, models.LeadStatusNew), "vip", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(&tt.lead, models.SegmentCriteria{Preset: tt.preset}, now)
			if got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.preset, got, tt.want)
			}
		})
	}
}

func TestPresetsMayOverlap(t *testing.T) {
	now := time.Now()
	// Old but never contacted: matches both cold and no_conversion
	lead := leadAged(120, models.LeadStatusNew)

	if !Matches(&lead, models.SegmentCriteria{Preset: models.PresetCold}, now) {
		t.Error("120-day lead should match cold")
	}
	if !Matches(&lead, models.SegmentCriteria{Preset: models.PresetNoConversion}, now) {
		t.Error("120-day new lead should match no_conversion")
	}
	// hot and cold are mutually exclusive by construction
	if Matches(&lead, models.SegmentCriteria{Preset: models.PresetHot}, now) {
		t.Error("120-day lead must not match hot")
	}
}

func TestMatchesGeneralCriteria(t *testing.T) {
	now := time.Now()
	lead := leadAged(20, models.LeadStatusContacted)
	lead.Service = "Roof Repair"

	tests := []struct {
		name     string
		criteria models.SegmentCriteria
		want     bool
	}{
		{"empty criteria matches all", models.SegmentCriteria{}, true},
		{"status filter match", models.SegmentCriteria{Status: models.LeadStatusContacted}, true},
		{"status filter mismatch", models.SegmentCriteria{Status: models.LeadStatusNew}, false},
		{"age window match", models.SegmentCriteria{MinAgeDays: 10, MaxAgeDays: 30}, true},
		{"below min age", models.SegmentCriteria{MinAgeDays: 25}, false},
		{"above max age", models.SegmentCriteria{MaxAgeDays: 15}, false},
		{"service substring case-insensitive", models.SegmentCriteria{Service: "roof"}, true},
		{"service mismatch", models.SegmentCriteria{Service: "plumbing"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(&lead, tt.criteria, now); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountAndMaterialize(t *testing.T) {
	now := time.Now()
	leads := []models.Lead{
		leadAged(1, models.LeadStatusNew),       // hot
		leadAged(10, models.LeadStatusClosed),   // neither
		leadAged(40, models.LeadStatusNew),      // warm + no_conversion
		leadAged(100, models.LeadStatusNew),     // cold + no_conversion
		leadAged(2, models.LeadStatusContacted), // hot
	}

	hot := models.SegmentCriteria{Preset: models.PresetHot}
	if got := Count(leads, hot, now); got != 2 {
		t.Errorf("Count(hot) = %d, want 2", got)
	}

	matched := Materialize(leads, hot, now)
	if len(matched) != 2 {
		t.Fatalf("Materialize(hot) returned %d leads, want 2", len(matched))
	}
	// Supplied order preserved
	if matched[0].CreatedAt != leads[0].CreatedAt || matched[1].CreatedAt != leads[4].CreatedAt {
		t.Error("Materialize() did not preserve supplied order")
	}

	if got := Count(leads, models.SegmentCriteria{Preset: models.PresetNoConversion}, now); got != 2 {
		t.Errorf("Count(no_conversion) = %d, want 2", got)
	}
}
