package mailer

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// ErrNoChannelConfigured is returned when resolution exhausts every tier.
// Callers must treat it as non-retryable and must not attempt delivery.
var ErrNoChannelConfigured = errors.New("no mail channel configured")

// Error categories surfaced to operators instead of raw transport errors
const (
	CategoryAuth      = "authentication_failed"
	CategoryRefused   = "connection_refused"
	CategoryTimeout   = "timeout"
	CategoryTLS       = "certificate_problem"
	CategoryDNS       = "host_not_found"
	CategoryRejected  = "recipient_rejected"
	CategoryTransport = "transport_error"
)

// TransportError wraps a transport failure with an operator-readable
// category and message
type TransportError struct {
	Category string
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// smtpCodePattern matches SMTP reply codes at word boundaries
var smtpCodePattern = regexp.MustCompile(`\b(4\d{2}|5\d{2})\b`)

// ClassifyError maps a raw transport error onto an operator-readable
// category. Raw SMTP and network errors are not actionable for a
// non-technical operator; the categorized message is what the UI shows.
func ClassifyError(err error) *TransportError {
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{
			Category: CategoryDNS,
			Message:  fmt.Sprintf("mail server hostname could not be found: %s", dnsErr.Name),
			Err:      err,
		}
	}

	var certErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invErr x509.CertificateInvalidError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &invErr) ||
		strings.Contains(lower, "certificate") || strings.Contains(lower, "x509") || strings.Contains(lower, "tls") {
		return &TransportError{
			Category: CategoryTLS,
			Message:  "secure connection failed: the server's certificate could not be verified",
			Err:      err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{
			Category: CategoryTimeout,
			Message:  "connection to the mail server timed out",
			Err:      err,
		}
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return &TransportError{
			Category: CategoryTimeout,
			Message:  "connection to the mail server timed out",
			Err:      err,
		}
	}

	if strings.Contains(lower, "connection refused") {
		return &TransportError{
			Category: CategoryRefused,
			Message:  "the mail server refused the connection: check host and port",
			Err:      err,
		}
	}

	// 535 is the canonical bad-credentials reply; some providers use 534/530
	if strings.Contains(lower, "535") || strings.Contains(lower, "534") ||
		strings.Contains(lower, "auth") || strings.Contains(lower, "credentials") ||
		strings.Contains(lower, "password") {
		return &TransportError{
			Category: CategoryAuth,
			Message:  "the mail server rejected the username or password",
			Err:      err,
		}
	}

	if matches := smtpCodePattern.FindStringSubmatch(msg); len(matches) > 1 {
		return &TransportError{
			Category: CategoryRejected,
			Message:  fmt.Sprintf("the mail server rejected the message: %s", msg),
			Err:      err,
		}
	}

	return &TransportError{
		Category: CategoryTransport,
		Message:  fmt.Sprintf("mail delivery failed: %s", msg),
		Err:      err,
	}
}
