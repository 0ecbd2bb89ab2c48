package models

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"
)

// Known channel purposes. A channel may serve any subset of these.
const (
	PurposeGeneral       = "general"
	PurposeMarketing     = "marketing"
	PurposeTransactional = "transactional"
	PurposeNotifications = "notifications"
	PurposePasswordReset = "password_reset"
)

// Channel security modes
const (
	SecurityAuto     = "auto"
	SecuritySSL      = "ssl"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

// Channel represents a configured outbound SMTP account
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	Security  string `json:"security"` // auto, ssl, starttls, none
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name,omitempty"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Purposes  string `json:"purposes"` // JSON array of purpose tags
	IsDefault bool   `json:"is_default"`
	IsActive  bool   `json:"is_active"`

	// Optional DKIM signing for the sender domain
	DKIMSelector string `json:"dkim_selector,omitempty"`
	DKIMKeyFile  string `json:"dkim_key_file,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PurposeList parses the Purposes JSON array. Invalid or empty data
// yields an empty list.
func (c *Channel) PurposeList() []string {
	if c.Purposes == "" {
		return nil
	}
	var purposes []string
	if err := json.Unmarshal([]byte(c.Purposes), &purposes); err != nil {
		return nil
	}
	return purposes
}

// SetPurposes stores the purpose tags as a JSON array
func (c *Channel) SetPurposes(purposes []string) {
	data, _ := json.Marshal(purposes)
	c.Purposes = string(data)
}

// HasPurpose reports whether the channel declares the given purpose tag
func (c *Channel) HasPurpose(purpose string) bool {
	for _, p := range c.PurposeList() {
		if strings.EqualFold(p, purpose) {
			return true
		}
	}
	return false
}

// Addr returns the host:port dial address
func (c *Channel) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ChannelFilter for listing channels
type ChannelFilter struct {
	ActiveOnly bool
	Purpose    string
	Limit      int
	Offset     int
}
