package mailer

import (
	"errors"
	"net"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
	}{
		{
			name:     "dns failure",
			err:      &net.DNSError{Name: "smtp.bad.example", Err: "no such host", IsNotFound: true},
			category: CategoryDNS,
		},
		{
			name:     "certificate failure",
			err:      errors.New("x509: certificate signed by unknown authority"),
			category: CategoryTLS,
		},
		{
			name:     "timeout",
			err:      errors.New("dial tcp 10.0.0.1:587: i/o timeout"),
			category: CategoryTimeout,
		},
		{
			name:     "context deadline",
			err:      errors.New("context deadline exceeded"),
			category: CategoryTimeout,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:2525: connect: connection refused"),
			category: CategoryRefused,
		},
		{
			name:     "bad credentials",
			err:      errors.New("535 5.7.8 username and password not accepted"),
			category: CategoryAuth,
		},
		{
			name:     "recipient rejected",
			err:      errors.New("550 5.1.1 mailbox unavailable"),
			category: CategoryRejected,
		},
		{
			name:     "unrecognized failure",
			err:      errors.New("write: broken pipe"),
			category: CategoryTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if classified.Category != tt.category {
				t.Errorf("category = %q, want %q", classified.Category, tt.category)
			}
			if classified.Message == "" {
				t.Error("expected an operator-readable message")
			}
			if !errors.Is(classified, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if ClassifyError(nil) != nil {
		t.Error("nil error should classify to nil")
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	original := &TransportError{Category: CategoryAuth, Message: "already classified"}
	wrapped := errors.Join(errors.New("outer"), original)

	if got := ClassifyError(wrapped); got != original {
		t.Error("an already classified error should pass through unchanged")
	}
}
