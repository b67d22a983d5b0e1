package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = errors.New("message not found")

// GetMessageByID returns a message by its id.
func GetMessageByID(ctx context.Context, pool Pool, messageID string) (*models.Message, error) {
	var msg models.Message

	err := pool.QueryRow(ctx, `
		SELECT id, topic_id, parent_id, depth, author_id, body, created_at
		FROM messages
		WHERE id = $1
	`, messageID).Scan(
		&msg.ID,
		&msg.TopicID,
		&msg.ParentID,
		&msg.Depth,
		&msg.AuthorID,
		&msg.Body,
		&msg.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

// GetMessagesForTopic returns all messages belonging to a topic, in
// chronological order.
func GetMessagesForTopic(ctx context.Context, pool Pool, topicID string) ([]*models.Message, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, topic_id, parent_id, depth, author_id, body, created_at
		FROM messages
		WHERE topic_id = $1
		ORDER BY created_at ASC
	`, topicID)

	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TopicID,
			&msg.ParentID,
			&msg.Depth,
			&msg.AuthorID,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// PostReply inserts a reply to the given parent message and bumps the topic's
// message count, both inside one transaction. The reply's depth is the
// parent's depth plus one and its topic is the parent's topic. The counter
// bump is a single atomic UPDATE, so concurrent replies to the same topic
// never lose counts.
func PostReply(ctx context.Context, pool Pool, parentMessageID, authorID, body string) (*models.Message, error) {
	parent, err := GetMessageByID(ctx, pool, parentMessageID)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var msg models.Message
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (topic_id, parent_id, depth, author_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, topic_id, parent_id, depth, author_id, body, created_at
	`, parent.TopicID, parent.ID, parent.Depth+1, authorID, body).Scan(
		&msg.ID,
		&msg.TopicID,
		&msg.ParentID,
		&msg.Depth,
		&msg.AuthorID,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reply: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE topics
		SET message_count = message_count + 1
		WHERE id = $1
	`, parent.TopicID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment message count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrTopicNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reply: %w", err)
	}

	return &msg, nil
}
