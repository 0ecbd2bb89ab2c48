package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Segment presets
const (
	PresetHot          = "hot"
	PresetWarm         = "warm"
	PresetCold         = "cold"
	PresetNoConversion = "no_conversion"
)

// Segment is a saved audience definition with a cached match count.
// The count is recomputed on demand, not kept continuously consistent.
type Segment struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Criteria    string     `json:"criteria"` // JSON-encoded SegmentCriteria
	LeadCount   int        `json:"lead_count"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SegmentCriteria describes an audience predicate. When Preset is set it
// takes precedence over the general fields.
type SegmentCriteria struct {
	Preset     string `json:"preset,omitempty"` // hot, warm, cold, no_conversion
	Status     string `json:"status,omitempty"`
	MinAgeDays int    `json:"min_age_days,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"` // 0 means unbounded
	Service    string `json:"service,omitempty"`
}

// ParseCriteria decodes the stored criteria JSON
func (s *Segment) ParseCriteria() (SegmentCriteria, error) {
	var c SegmentCriteria
	if s.Criteria == "" {
		return c, fmt.Errorf("segment %s has no criteria", s.ID)
	}
	if err := json.Unmarshal([]byte(s.Criteria), &c); err != nil {
		return c, fmt.Errorf("failed to parse segment criteria: %w", err)
	}
	return c, nil
}

// SetCriteria stores the criteria as JSON
func (s *Segment) SetCriteria(c SegmentCriteria) {
	data, _ := json.Marshal(c)
	s.Criteria = string(data)
}
