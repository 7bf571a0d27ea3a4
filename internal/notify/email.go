package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// EmailMessage is one outbound mail.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

// EmailSender delivers workflow email notifications.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPSender sends through a plain SMTP relay without authentication.
// Internal relays are assumed, credentials belong on the relay side.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("send email: no recipients")
	}
	if err := smtp.SendMail(s.addr, nil, s.from, msg.To, buildMessage(s.from, msg)); err != nil {
		return fmt.Errorf("send email via %s: %w", s.addr, err)
	}
	return nil
}

func buildMessage(from string, msg EmailMessage) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogSender logs instead of delivering, for environments without a relay.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "email").Logger()}
}

func (s *LogSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Body)).
		Msg("email delivery skipped, no relay configured")
	return nil
}
