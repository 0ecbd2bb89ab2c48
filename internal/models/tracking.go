package models

import "time"

// Tracking record statuses
const (
	TrackingStatusPending = "pending"
	TrackingStatusSent    = "sent"
	TrackingStatusFailed  = "failed"
	TrackingStatusSkipped = "skipped"
)

// TrackingRecord is one row per (campaign, recipient) pair. The ID is the
// tracking identifier embedded into that specific message before
// transmission and is never reused across sends.
type TrackingRecord struct {
	ID              string     `json:"id"`
	CampaignID      string     `json:"campaign_id"`
	LeadID          string     `json:"lead_id"`
	Email           string     `json:"email"`
	RenderedSubject string     `json:"rendered_subject"`
	Status          string     `json:"status"`
	Error           string     `json:"error,omitempty"`
	Opens           int        `json:"opens"`
	Clicks          int        `json:"clicks"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
