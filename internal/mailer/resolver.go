package mailer

import (
	"fmt"
	"log/slog"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// ChannelLister supplies the active channel configurations, most
// recently created first
type ChannelLister interface {
	ListActive() ([]models.Channel, error)
}

// Resolver picks the channel for a purpose. The legacy channel is the
// single-channel configuration from the config file, passed in
// explicitly so the fallback chain is visible and testable.
type Resolver struct {
	channels ChannelLister
	legacy   *models.Channel
	logger   *slog.Logger
}

func NewResolver(channels ChannelLister, legacy *models.Channel, logger *slog.Logger) *Resolver {
	return &Resolver{
		channels: channels,
		legacy:   legacy,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve returns the channel to use for a purpose, or
// ErrNoChannelConfigured when every tier is exhausted. Resolution never
// mutates channel records; it only reads and logs.
func (r *Resolver) Resolve(purpose string) (*models.Channel, error) {
	channels, err := r.channels.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	channel, tier := SelectChannel(channels, r.legacy, purpose)
	if channel == nil {
		r.logger.Warn("no channel resolved", "purpose", purpose)
		return nil, ErrNoChannelConfigured
	}

	r.logger.Info("channel resolved",
		"purpose", purpose,
		"channel", channel.Name,
		"tier", tier,
	)
	return channel, nil
}

// SelectChannel is the pure resolution function over an ordered channel
// list. Tiers, first match wins:
//
//  1. active channels declaring the purpose: the default one, or the
//     first in list order (most recently created) when none is default
//  2. the active channel flagged default, regardless of purposes
//  3. the legacy single-channel configuration
//
// Storage may hold several defaults; selection still yields exactly one
// winner because the list ordering is stable.
func SelectChannel(channels []models.Channel, legacy *models.Channel, purpose string) (*models.Channel, string) {
	var firstMatch *models.Channel
	for i := range channels {
		if !channels[i].HasPurpose(purpose) {
			continue
		}
		if channels[i].IsDefault {
			return &channels[i], "purpose-default"
		}
		if firstMatch == nil {
			firstMatch = &channels[i]
		}
	}
	if firstMatch != nil {
		return firstMatch, "purpose"
	}

	for i := range channels {
		if channels[i].IsDefault {
			return &channels[i], "default"
		}
	}

	if legacy != nil {
		return legacy, "legacy"
	}

	return nil, ""
}

// LegacyChannelFromConfig builds the tier-3 fallback channel from the
// config file's mail section. Returns nil when the section is empty.
func LegacyChannelFromConfig(host string, port int, username, password, security, fromEmail, fromName, replyTo string) *models.Channel {
	if host == "" || fromEmail == "" {
		return nil
	}
	c := &models.Channel{
		Name:      "legacy-config",
		Host:      host,
		Port:      port,
		Username:  username,
		Password:  password,
		Security:  security,
		FromEmail: fromEmail,
		FromName:  fromName,
		ReplyTo:   replyTo,
		IsActive:  true,
	}
	c.SetPurposes([]string{models.PurposeGeneral})
	return c
}
