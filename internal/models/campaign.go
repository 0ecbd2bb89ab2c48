package models

import (
	"encoding/json"
	"time"
)

// Campaign send modes
const (
	ModeNow      = "now"
	ModeSchedule = "schedule"
	ModeBatch    = "batch"
)

// Campaign statuses
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusSent      = "sent"
	CampaignStatusFailed    = "failed"
)

// Campaign is a sent or scheduled message definition. Immutable after
// delivery is triggered, except for aggregate counters and the archived
// flag.
type Campaign struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Subject     string     `json:"subject"`
	BodyHTML    string     `json:"body_html"`
	BodyText    string     `json:"body_text,omitempty"`
	Purpose     string     `json:"purpose"`  // channel purpose, typically marketing
	Audience    string     `json:"audience"` // JSON-encoded SegmentCriteria
	Mode        string     `json:"mode"`     // now, schedule, batch
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	DailyLimit  int        `json:"daily_limit,omitempty"` // batch mode per-day cap
	Status      string     `json:"status"`

	Recipients int  `json:"recipients"`
	Sent       int  `json:"sent"`
	Failed     int  `json:"failed"`
	Opens      int  `json:"opens"`
	Clicks     int  `json:"clicks"`
	Archived   bool `json:"archived"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ParseAudience decodes the stored audience criteria
func (c *Campaign) ParseAudience() (SegmentCriteria, error) {
	var criteria SegmentCriteria
	if c.Audience == "" {
		return criteria, nil
	}
	if err := json.Unmarshal([]byte(c.Audience), &criteria); err != nil {
		return criteria, err
	}
	return criteria, nil
}

// SetAudience stores the audience criteria as JSON
func (c *Campaign) SetAudience(criteria SegmentCriteria) {
	data, _ := json.Marshal(criteria)
	c.Audience = string(data)
}

// CampaignFilter for listing campaigns
type CampaignFilter struct {
	Status   string
	Archived *bool
	Search   string
	Limit    int
	Offset   int
}
