package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrMailLogEntryNotFound is returned when a requested mail log entry cannot
// be found.
var ErrMailLogEntryNotFound = errors.New("mail log entry not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// MailLogFilter narrows ListMailLog results. Zero values mean "no filter".
type MailLogFilter struct {
	Status    string
	Recipient string
	Since     time.Time
	Until     time.Time
}

// InsertMailLogEntry persists one send attempt. Address lists are encoded to
// their pipe-joined stored form on the way in; template data is stored as
// JSON. The entry's ID and CreatedAt are filled in from the inserted row.
func InsertMailLogEntry(ctx context.Context, pool Pool, entry *models.MailLogEntry) error {
	var templateData *string
	if entry.TemplateData != nil {
		encoded, err := json.Marshal(entry.TemplateData)
		if err != nil {
			return fmt.Errorf("failed to encode template data: %w", err)
		}
		s := string(encoded)
		templateData = &s
	}

	err := pool.QueryRow(ctx, `
		INSERT INTO mail_log (subject, template, template_data, to_addresses, cc_addresses, bcc_addresses, reply_to_addresses, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		entry.Subject,
		entry.Template,
		templateData,
		models.EncodeAddressList(entry.To),
		models.EncodeAddressList(entry.CC),
		models.EncodeAddressList(entry.BCC),
		models.EncodeAddressList(entry.ReplyTo),
		entry.Status,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert mail log entry: %w", err)
	}

	return nil
}

// GetMailLogEntry returns one mail log entry by id, with address lists and
// template data decoded from their stored forms.
func GetMailLogEntry(ctx context.Context, pool Pool, entryID string) (*models.MailLogEntry, error) {
	row := pool.QueryRow(ctx, `
		SELECT id, subject, template, template_data, to_addresses, cc_addresses, bcc_addresses, reply_to_addresses, status, created_at
		FROM mail_log
		WHERE id = $1
	`, entryID)

	entry, err := scanMailLogEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMailLogEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mail log entry: %w", err)
	}

	return entry, nil
}

// ListFailedMail returns all entries with status "failed", oldest first, for
// administrative review.
func ListFailedMail(ctx context.Context, pool Pool) ([]*models.MailLogEntry, error) {
	return ListMailLog(ctx, pool, MailLogFilter{Status: models.MailStatusFailed})
}

// ListMailLog returns mail log entries matching the filter, oldest first.
func ListMailLog(ctx context.Context, pool Pool, filter MailLogFilter) ([]*models.MailLogEntry, error) {
	query := psql.
		Select("id", "subject", "template", "template_data", "to_addresses", "cc_addresses", "bcc_addresses", "reply_to_addresses", "status", "created_at").
		From("mail_log").
		OrderBy("created_at ASC")

	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Recipient != "" {
		// Recipient filtering matches against the stored pipe-joined column.
		query = query.Where(sq.Like{"to_addresses": "%" + filter.Recipient + "%"})
	}
	if !filter.Since.IsZero() {
		query = query.Where(sq.GtOrEq{"created_at": filter.Since})
	}
	if !filter.Until.IsZero() {
		query = query.Where(sq.Lt{"created_at": filter.Until})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build mail log query: %w", err)
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mail log: %w", err)
	}
	defer rows.Close()

	var entries []*models.MailLogEntry
	for rows.Next() {
		entry, err := scanMailLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mail log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mail log: %w", err)
	}

	return entries, nil
}

// MarkMailResent transitions the entry's status to "resent".
func MarkMailResent(ctx context.Context, pool Pool, entryID string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE mail_log SET status = $2 WHERE id = $1
	`, entryID, models.MailStatusResent)

	if err != nil {
		return fmt.Errorf("failed to mark mail resent: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMailLogEntryNotFound
	}

	return nil
}

func scanMailLogEntry(row pgx.Row) (*models.MailLogEntry, error) {
	var entry models.MailLogEntry
	var templateData, to, cc, bcc, replyTo *string

	if err := row.Scan(
		&entry.ID,
		&entry.Subject,
		&entry.Template,
		&templateData,
		&to,
		&cc,
		&bcc,
		&replyTo,
		&entry.Status,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	if templateData != nil {
		if err := json.Unmarshal([]byte(*templateData), &entry.TemplateData); err != nil {
			return nil, fmt.Errorf("failed to decode template data: %w", err)
		}
	}

	entry.To = models.DecodeAddressList(to)
	entry.CC = models.DecodeAddressList(cc)
	entry.BCC = models.DecodeAddressList(bcc)
	entry.ReplyTo = models.DecodeAddressList(replyTo)

	return &entry, nil
}
