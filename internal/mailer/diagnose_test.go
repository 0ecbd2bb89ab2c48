package mailer

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDiagnoseSuccess(t *testing.T) {
	backend := &testBackend{username: "mailer", password: "secret"}
	host, port := startTestServer(t, backend)

	harness := NewHarness(NewTransport(5*time.Second, discardLogger()), discardLogger())
	log := harness.Diagnose(context.Background(), testChannelFor(host, port), "operator@example.com")

	if !log.Success {
		t.Fatalf("expected success, got %+v", log)
	}
	if !log.ConnectionTest || !log.EmailTest {
		t.Error("both stages should pass")
	}
	if log.MessageID == "" {
		t.Error("expected a message ID")
	}
	if log.ErrorCategory != "" {
		t.Errorf("error category should be empty, got %q", log.ErrorCategory)
	}

	msgs := backend.captured()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 delivered test message, got %d", len(msgs))
	}
	if msgs[0].To[0] != "operator@example.com" {
		t.Errorf("test recipient = %q", msgs[0].To[0])
	}
}

func TestDiagnoseConnectionFailure(t *testing.T) {
	harness := NewHarness(NewTransport(2*time.Second, discardLogger()), discardLogger())
	channel := testChannelFor("127.0.0.1", unusedPort(t))

	log := harness.Diagnose(context.Background(), channel, "operator@example.com")

	if log.Success {
		t.Fatal("expected failure")
	}
	if log.ConnectionTest {
		t.Error("connection stage should fail")
	}
	if log.EmailTest {
		t.Error("email stage must not pass when connection failed")
	}
	if log.EmailMessage != "Not attempted due to connection failure" {
		t.Errorf("email message = %q", log.EmailMessage)
	}
	if log.ErrorCategory != CategoryRefused {
		t.Errorf("category = %q, want %q", log.ErrorCategory, CategoryRefused)
	}
	if log.ErrorDetails == "" {
		t.Error("expected raw error details for support use")
	}
}

func TestDiagnoseSendFailure(t *testing.T) {
	backend := &testBackend{username: "mailer", password: "secret", rejectRcpt: true}
	host, port := startTestServer(t, backend)

	harness := NewHarness(NewTransport(5*time.Second, discardLogger()), discardLogger())
	log := harness.Diagnose(context.Background(), testChannelFor(host, port), "operator@example.com")

	if log.Success {
		t.Fatal("expected failure")
	}
	if !log.ConnectionTest {
		t.Error("connection stage should pass")
	}
	if log.EmailTest {
		t.Error("email stage should fail")
	}
	if log.ErrorCategory != CategoryRejected {
		t.Errorf("category = %q, want %q", log.ErrorCategory, CategoryRejected)
	}
	if !strings.Contains(log.ConnectionMessage, "Connected") {
		t.Errorf("connection message = %q", log.ConnectionMessage)
	}
}
