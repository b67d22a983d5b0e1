package mail_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/fieldstation/internal/config"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/testutil"
)

func newTestMailer(t *testing.T) (*mail.SMTPMailer, *testutil.TestSMTPServer) {
	t.Helper()

	server := testutil.NewTestSMTPServer(t)

	host, port, err := net.SplitHostPort(server.Address)
	require.NoError(t, err)

	cfg := &config.Config{
		SMTPHost:        host,
		SMTPPort:        port,
		MailFromAddress: "noreply@fieldstation.example",
		MailFromName:    "Fieldstation",
	}

	return mail.NewSMTPMailer(cfg), server
}

func TestSMTPMailerSend(t *testing.T) {
	mailer, server := newTestMailer(t)
	ctx := context.Background()

	err := mailer.Send(ctx, &mail.Message{
		Subject:  "This week on the discussion board",
		Template: mail.TemplateBoardDigest,
		Data: map[string]string{
			"SiteName":  "Fieldstation",
			"TopicList": "  - Antenna alignment (2 messages)\n",
		},
		To:  []string{"member@fieldstation.example"},
		BCC: []string{"archive@fieldstation.example"},
	})
	require.NoError(t, err)

	messages := server.Backend.GetMessages()
	require.Len(t, messages, 1)

	received := messages[0]
	assert.Equal(t, "noreply@fieldstation.example", received.From)
	assert.ElementsMatch(t, []string{
		"member@fieldstation.example",
		"archive@fieldstation.example",
	}, received.To)

	data := string(received.Data)
	assert.Contains(t, data, "Subject: This week on the discussion board")
	assert.Contains(t, data, "Antenna alignment (2 messages)")
	// Bcc recipients appear in the envelope only.
	assert.NotContains(t, data, "archive@fieldstation.example")
}

func TestSMTPMailerRejectsEmptyRecipients(t *testing.T) {
	mailer, server := newTestMailer(t)

	err := mailer.Send(context.Background(), &mail.Message{
		Subject:  "Nobody home",
		Template: mail.TemplateBoardDigest,
		Data: map[string]string{
			"SiteName":  "Fieldstation",
			"TopicList": "  - quiet week\n",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")

	assert.Empty(t, server.Backend.GetMessages())
}

func TestSMTPMailerMockMode(t *testing.T) {
	cfg := &config.Config{
		SMTPHost:        "smtp.invalid",
		SMTPPort:        "587",
		MailFromAddress: "noreply@fieldstation.example",
		MailFromName:    "Fieldstation",
		MockMail:        true,
	}
	mailer := mail.NewSMTPMailer(cfg)

	// Mock mode never touches the network, so an unreachable host is fine.
	err := mailer.Send(context.Background(), &mail.Message{
		Subject:  "Mock only",
		Template: mail.TemplateBoardDigest,
		Data: map[string]string{
			"SiteName":  "Fieldstation",
			"TopicList": "  - nothing real\n",
		},
		To: []string{"member@fieldstation.example"},
	})
	assert.NoError(t, err)
}
