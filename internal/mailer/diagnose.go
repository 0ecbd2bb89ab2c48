package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// DiagnosticLog is the structured result of a channel diagnosis. It is
// ephemeral: returned to the caller, never persisted.
type DiagnosticLog struct {
	Success           bool          `json:"success"`
	ConnectionTest    bool          `json:"connection_test"`
	ConnectionMessage string        `json:"connection_message"`
	EmailTest         bool          `json:"email_test"`
	EmailMessage      string        `json:"email_message"`
	MessageID         string        `json:"message_id,omitempty"`
	Response          string        `json:"response,omitempty"`
	ErrorCategory     string        `json:"error_category,omitempty"`
	ErrorDetails      string        `json:"error_details,omitempty"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Harness proves a channel is usable before it is trusted: an isolated
// connection verify, then a real send to a test recipient.
type Harness struct {
	transport *Transport
	logger    *slog.Logger
}

func NewHarness(transport *Transport, logger *slog.Logger) *Harness {
	return &Harness{
		transport: transport,
		logger:    logger.With("component", "diagnostics"),
	}
}

// Diagnose runs both stages against a candidate channel. Stage 2 never
// runs when stage 1 fails. Overall success requires both stages.
func (h *Harness) Diagnose(ctx context.Context, channel *models.Channel, testRecipient string) *DiagnosticLog {
	start := time.Now()
	log := &DiagnosticLog{}

	// Stage 1: connection verify, no content
	if err := h.transport.VerifyConnection(ctx, channel); err != nil {
		classified := ClassifyError(err)
		log.ConnectionTest = false
		log.ConnectionMessage = classified.Message
		log.EmailTest = false
		log.EmailMessage = "Not attempted due to connection failure"
		log.ErrorCategory = classified.Category
		log.ErrorDetails = err.Error()
		log.Elapsed = time.Since(start)

		h.logger.Warn("channel diagnosis failed at connection stage",
			"channel", channel.Name,
			"category", classified.Category,
			"error", err,
		)
		return log
	}

	log.ConnectionTest = true
	log.ConnectionMessage = fmt.Sprintf("Connected and authenticated to %s", channel.Addr())

	// Stage 2: live labeled send
	result, err := h.transport.Send(ctx, channel, diagnosticMessage(channel, testRecipient))
	if err != nil {
		classified := ClassifyError(err)
		log.EmailTest = false
		log.EmailMessage = classified.Message
		log.ErrorCategory = classified.Category
		log.ErrorDetails = err.Error()
		log.Elapsed = time.Since(start)

		h.logger.Warn("channel diagnosis failed at send stage",
			"channel", channel.Name,
			"category", classified.Category,
			"error", err,
		)
		return log
	}

	log.EmailTest = true
	log.EmailMessage = fmt.Sprintf("Test message delivered to %s", testRecipient)
	log.MessageID = result.MessageID
	log.Response = result.Response
	log.Success = true
	log.Elapsed = time.Since(start)

	h.logger.Info("channel diagnosis succeeded",
		"channel", channel.Name,
		"recipient", testRecipient,
		"elapsed", log.Elapsed,
	)
	return log
}

func diagnosticMessage(channel *models.Channel, to string) *Message {
	now := time.Now().Format(time.RFC1123Z)
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("Channel test: %s", channel.Name),
		Text: fmt.Sprintf("This is a diagnostic message confirming the channel %q can send mail.\n\nSent: %s\nServer: %s\n",
			channel.Name, now, channel.Addr()),
		HTML: fmt.Sprintf("<html><body><p>This is a diagnostic message confirming the channel <b>%s</b> can send mail.</p><p>Sent: %s<br>Server: %s</p></body></html>",
			channel.Name, now, channel.Addr()),
	}
}
