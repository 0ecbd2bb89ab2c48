package models

import "time"

// Lead statuses
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusClosed    = "closed"
)

// Lead represents a person who submitted a service request
type Lead struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	City       string    `json:"city,omitempty"`
	State      string    `json:"state,omitempty"`
	Service    string    `json:"service,omitempty"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status"` // new, contacted, closed
	AssignedTo string    `json:"assigned_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AgeDays returns the whole days elapsed since the lead was created
func (l *Lead) AgeDays(now time.Time) int {
	return int(now.Sub(l.CreatedAt).Hours() / 24)
}

// MergeFields returns the per-recipient values available to merge tags
func (l *Lead) MergeFields() map[string]string {
	return map[string]string{
		"name":    l.Name,
		"email":   l.Email,
		"phone":   l.Phone,
		"city":    l.City,
		"state":   l.State,
		"service": l.Service,
	}
}

// LeadFilter for listing leads
type LeadFilter struct {
	Status     string
	AssignedTo string
	Search     string
	Limit      int
	Offset     int
}
