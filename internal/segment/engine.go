// Package segment evaluates audience predicates against the lead
// population. Presets bucket leads by age since creation and status; the
// buckets are not disjoint: an old lead that is still "new" matches both
// cold and no_conversion.
package segment

import (
	"strings"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// Matches reports whether a lead satisfies the criteria at the given
// wall-clock time. A preset takes precedence over the general fields.
func Matches(lead *models.Lead, criteria models.SegmentCriteria, now time.Time) bool {
	if criteria.Preset != "" {
		return matchesPreset(lead, criteria.Preset, now)
	}

	age := lead.AgeDays(now)
	if criteria.Status != "" && lead.Status != criteria.Status {
		return false
	}
	if criteria.MinAgeDays > 0 && age < criteria.MinAgeDays {
		return false
	}
	if criteria.MaxAgeDays > 0 && age > criteria.MaxAgeDays {
		return false
	}
	if criteria.Service != "" && !strings.Contains(strings.ToLower(lead.Service), strings.ToLower(criteria.Service)) {
		return false
	}
	return true
}

func matchesPreset(lead *models.Lead, preset string, now time.Time) bool {
	age := lead.AgeDays(now)

	switch preset {
	case models.PresetHot:
		return age <= 30 && lead.Status != models.LeadStatusClosed
	case models.PresetWarm:
		return age > 30 && age <= 60 && lead.Status != models.LeadStatusClosed
	case models.PresetCold:
		return age > 90
	case models.PresetNoConversion:
		return lead.Status == models.LeadStatusNew && age > 7
	default:
		return false
	}
}

// Count returns how many leads match the criteria
func Count(leads []models.Lead, criteria models.SegmentCriteria, now time.Time) int {
	n := 0
	for i := range leads {
		if Matches(&leads[i], criteria, now) {
			n++
		}
	}
	return n
}

// Materialize returns the matching leads in their supplied order. The
// delivery pipeline processes recipients in exactly this order.
func Materialize(leads []models.Lead, criteria models.SegmentCriteria, now time.Time) []models.Lead {
	matched := []models.Lead{}
	for i := range leads {
		if Matches(&leads[i], criteria, now) {
			matched = append(matched, leads[i])
		}
	}
	return matched
}
