package mail

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/meridianlab/fieldstation/internal/config"
)

// SMTPMailer submits messages to an SMTP relay. In mock mode (local
// development) it only logs what it would have sent.
type SMTPMailer struct {
	addr     string
	username string
	password string
	fromName string
	fromAddr string
	mockMode bool
}

// NewSMTPMailer creates a mailer from the site configuration.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		addr:     cfg.GetSMTPAddress(),
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		fromName: cfg.MailFromName,
		fromAddr: cfg.MailFromAddress,
		mockMode: cfg.MockMail,
	}
}

// Send renders the message template, composes a MIME message, and submits it.
// Transient submission failures are retried a few times with backoff before
// the send is reported as failed.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 && len(msg.CC) == 0 && len(msg.BCC) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	body, err := renderBody(msg)
	if err != nil {
		return err
	}

	if m.mockMode {
		log.Printf("mail: MOCK send template=%s subject=%q to=%v cc=%v bcc=%v",
			msg.Template, msg.Subject, msg.To, msg.CC, msg.BCC)
		return nil
	}

	raw, err := m.compose(msg, body)
	if err != nil {
		return err
	}

	recipients := make([]string, 0, len(msg.To)+len(msg.CC)+len(msg.BCC))
	recipients = append(recipients, msg.To...)
	recipients = append(recipients, msg.CC...)
	recipients = append(recipients, msg.BCC...)

	var auth sasl.Client
	if m.username != "" {
		auth = sasl.NewPlainClient("", m.username, m.password)
	}

	err = retry.Do(
		func() error {
			start := time.Now()
			sendErr := smtp.SendMail(m.addr, auth, m.fromAddr, recipients, bytes.NewReader(raw))
			if sendErr != nil {
				log.Printf("mail: SMTP submit failed after %s, will retry: %v", time.Since(start), sendErr)
				return sendErr
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to submit message: %w", err)
	}

	return nil
}

func (m *SMTPMailer) compose(msg *Message, body string) ([]byte, error) {
	builder := enmime.Builder().
		From(m.fromName, m.fromAddr).
		Subject(msg.Subject).
		Text([]byte(body))

	for _, addr := range msg.To {
		builder = builder.To("", addr)
	}
	for _, addr := range msg.CC {
		builder = builder.CC("", addr)
	}
	for _, addr := range msg.BCC {
		builder = builder.BCC("", addr)
	}
	if len(msg.ReplyTo) > 0 {
		builder = builder.Header("Reply-To", strings.Join(msg.ReplyTo, ", "))
	}
	for _, att := range msg.Attachments {
		builder = builder.AddAttachment(att.Content, att.ContentType, att.Name)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build MIME message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode MIME message: %w", err)
	}

	return buf.Bytes(), nil
}
