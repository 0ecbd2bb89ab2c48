package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"sync"
	"time"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/dkim"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// Transport delivers messages through a channel's SMTP account
type Transport struct {
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	signers map[string]*dkim.Signer // keyed by channel ID
}

// NewTransport creates an SMTP transport
func NewTransport(timeout time.Duration, logger *slog.Logger) *Transport {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Transport{
		timeout: timeout,
		logger:  logger.With("component", "transport"),
		signers: make(map[string]*dkim.Signer),
	}
}

// Send transmits one message through the channel. Errors are returned
// raw; callers classify them with ClassifyError when surfacing to
// operators.
func (t *Transport) Send(ctx context.Context, channel *models.Channel, msg *Message) (*SendResult, error) {
	client, err := t.connect(ctx, channel)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	data, messageID := buildMIME(channel, msg)

	// Sign with DKIM when the channel has a key; failure degrades to an
	// unsigned send rather than blocking delivery
	if signer := t.signerFor(channel); signer != nil {
		signed, err := signer.Sign(data)
		if err != nil {
			t.logger.Warn("DKIM signing failed, sending unsigned",
				"channel", channel.Name,
				"error", err,
			)
		} else {
			data = signed
		}
	}

	if err := client.Mail(channel.FromEmail); err != nil {
		return nil, fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return nil, fmt.Errorf("RCPT TO %s failed: %w", msg.To, err)
	}

	wc, err := client.Data()
	if err != nil {
		return nil, fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return nil, fmt.Errorf("failed to write message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("message rejected: %w", err)
	}

	client.Quit()

	t.logger.Debug("message delivered",
		"channel", channel.Name,
		"to", msg.To,
		"message_id", messageID,
	)

	return &SendResult{
		MessageID: messageID,
		Response:  fmt.Sprintf("accepted by %s", channel.Addr()),
	}, nil
}

// VerifyConnection opens and validates a session against the channel
// without sending any content: dial, EHLO, TLS per the security mode,
// and AUTH when credentials are configured.
func (t *Transport) VerifyConnection(ctx context.Context, channel *models.Channel) error {
	client, err := t.connect(ctx, channel)
	if err != nil {
		return err
	}
	defer client.Close()

	client.Quit()
	return nil
}

// connect dials the channel and returns an authenticated SMTP client
func (t *Transport) connect(ctx context.Context, channel *models.Channel) (*smtp.Client, error) {
	addr := channel.Addr()

	security := channel.Security
	if security == "" || security == models.SecurityAuto {
		// Implicit TLS is the convention on 465; everything else gets
		// opportunistic STARTTLS
		if channel.Port == 465 {
			security = models.SecuritySSL
		} else {
			security = models.SecurityAuto
		}
	}

	dialer := &net.Dialer{Timeout: t.timeout}

	var client *smtp.Client
	if security == models.SecuritySSL {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
			ServerName: channel.Host,
			MinVersion: tls.VersionTLS12,
		})
		if err != nil {
			return nil, fmt.Errorf("TLS connection failed to %s: %w", addr, err)
		}
		t.applyDeadline(ctx, conn)

		client, err = smtp.NewClient(conn, channel.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("SMTP session failed: %w", err)
		}
	} else {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("connection failed to %s: %w", addr, err)
		}
		t.applyDeadline(ctx, conn)

		client, err = smtp.NewClient(conn, channel.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("SMTP session failed: %w", err)
		}

		hasStartTLS, _ := client.Extension("STARTTLS")
		switch {
		case security == models.SecurityStartTLS && !hasStartTLS:
			client.Close()
			return nil, fmt.Errorf("server %s does not support STARTTLS", addr)
		case security == models.SecurityStartTLS,
			security == models.SecurityAuto && hasStartTLS:
			tlsConfig := &tls.Config{
				ServerName: channel.Host,
				MinVersion: tls.VersionTLS12,
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if channel.Username != "" {
		auth := smtp.PlainAuth("", channel.Username, channel.Password, channel.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
	}

	return client, nil
}

func (t *Transport) applyDeadline(ctx context.Context, conn net.Conn) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(t.timeout))
	}
}

// signerFor returns the cached DKIM signer for a channel, loading the
// key file on first use. Channels without DKIM config return nil.
func (t *Transport) signerFor(channel *models.Channel) *dkim.Signer {
	if channel.DKIMSelector == "" || channel.DKIMKeyFile == "" {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if signer, ok := t.signers[channel.ID]; ok {
		return signer
	}

	signer, err := dkim.NewSignerFromFile(channel.DKIMKeyFile, senderDomain(channel.FromEmail), channel.DKIMSelector)
	if err != nil {
		t.logger.Warn("failed to load DKIM key, channel sends unsigned",
			"channel", channel.Name,
			"key_file", channel.DKIMKeyFile,
			"error", err,
		)
		t.signers[channel.ID] = nil
		return nil
	}

	t.signers[channel.ID] = signer
	return signer
}
