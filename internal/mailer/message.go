package mailer

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
)

// Message is one outbound email before transport encoding
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// SendResult carries the transport-level outcome of a successful send
type SendResult struct {
	MessageID string
	Response  string
}

// buildMIME renders the full RFC 5322 message for a channel and message.
// The Message-ID is generated here and reported back in the SendResult.
func buildMIME(channel *models.Channel, msg *Message) ([]byte, string) {
	domain := senderDomain(channel.FromEmail)
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
	boundary := strings.ReplaceAll(uuid.New().String(), "-", "")

	var b strings.Builder

	writeHeader(&b, "From", formatAddress(channel.FromEmail, channel.FromName))
	writeHeader(&b, "To", formatAddress(msg.To, msg.ToName))
	if channel.ReplyTo != "" {
		writeHeader(&b, "Reply-To", channel.ReplyTo)
	}
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&b, "Message-ID", messageID)
	writeHeader(&b, "Date", time.Now().Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	for k, v := range msg.Headers {
		writeHeader(&b, k, v)
	}

	switch {
	case msg.HTML != "" && msg.Text != "":
		writeHeader(&b, "Content-Type", fmt.Sprintf(`multipart/alternative; boundary=%q`, boundary))
		b.WriteString("\r\n")

		b.WriteString("--" + boundary + "\r\n")
		writeHeader(&b, "Content-Type", `text/plain; charset="utf-8"`)
		b.WriteString("\r\n")
		b.WriteString(normalizeNewlines(msg.Text))
		b.WriteString("\r\n")

		b.WriteString("--" + boundary + "\r\n")
		writeHeader(&b, "Content-Type", `text/html; charset="utf-8"`)
		b.WriteString("\r\n")
		b.WriteString(normalizeNewlines(msg.HTML))
		b.WriteString("\r\n")

		b.WriteString("--" + boundary + "--\r\n")

	case msg.HTML != "":
		writeHeader(&b, "Content-Type", `text/html; charset="utf-8"`)
		b.WriteString("\r\n")
		b.WriteString(normalizeNewlines(msg.HTML))
		b.WriteString("\r\n")

	default:
		writeHeader(&b, "Content-Type", `text/plain; charset="utf-8"`)
		b.WriteString("\r\n")
		b.WriteString(normalizeNewlines(msg.Text))
		b.WriteString("\r\n")
	}

	return []byte(b.String()), messageID
}

func writeHeader(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

func formatAddress(email, name string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), email)
}

func senderDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "localhost"
	}
	return strings.ToLower(email[at+1:])
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
