package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrTopicNotFound is returned when a requested topic cannot be found.
var ErrTopicNotFound = errors.New("topic not found")

// CreateTopic creates a topic together with its root message (depth 0) in a
// single transaction and sets message_count to 1. Either both rows exist
// afterwards or neither does.
func CreateTopic(ctx context.Context, pool Pool, title, ownerID, body string) (*models.Topic, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var topic models.Topic
	err = tx.QueryRow(ctx, `
		INSERT INTO topics (title, owner_id, message_count)
		VALUES ($1, $2, 1)
		RETURNING id, title, owner_id, created_at, view_count, message_count
	`, title, ownerID).Scan(
		&topic.ID,
		&topic.Title,
		&topic.OwnerID,
		&topic.CreatedAt,
		&topic.ViewCount,
		&topic.MessageCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert topic: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (topic_id, parent_id, depth, author_id, body)
		VALUES ($1, NULL, 0, $2, $3)
	`, topic.ID, ownerID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to insert root message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit topic creation: %w", err)
	}

	return &topic, nil
}

// GetTopicByID returns a topic by its id.
func GetTopicByID(ctx context.Context, pool Pool, topicID string) (*models.Topic, error) {
	var topic models.Topic

	err := pool.QueryRow(ctx, `
		SELECT id, title, owner_id, created_at, view_count, message_count
		FROM topics
		WHERE id = $1
	`, topicID).Scan(
		&topic.ID,
		&topic.Title,
		&topic.OwnerID,
		&topic.CreatedAt,
		&topic.ViewCount,
		&topic.MessageCount,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTopicNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	return &topic, nil
}

// ListTopics returns topics ordered by creation time, newest first.
func ListTopics(ctx context.Context, pool Pool, limit, offset int) ([]*models.Topic, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, title, owner_id, created_at, view_count, message_count
		FROM topics
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)

	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []*models.Topic
	for rows.Next() {
		var topic models.Topic
		if err := rows.Scan(
			&topic.ID,
			&topic.Title,
			&topic.OwnerID,
			&topic.CreatedAt,
			&topic.ViewCount,
			&topic.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, &topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topics: %w", err)
	}

	return topics, nil
}

// ListTopicsCreatedSince returns topics created at or after the given time,
// oldest first. Used by the weekly digest job.
func ListTopicsCreatedSince(ctx context.Context, pool Pool, since time.Time) ([]*models.Topic, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, title, owner_id, created_at, view_count, message_count
		FROM topics
		WHERE created_at >= $1
		ORDER BY created_at ASC
	`, since)

	if err != nil {
		return nil, fmt.Errorf("failed to list recent topics: %w", err)
	}
	defer rows.Close()

	var topics []*models.Topic
	for rows.Next() {
		var topic models.Topic
		if err := rows.Scan(
			&topic.ID,
			&topic.Title,
			&topic.OwnerID,
			&topic.CreatedAt,
			&topic.ViewCount,
			&topic.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, &topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topics: %w", err)
	}

	return topics, nil
}

// RecordView atomically increments the topic's view count by one and returns
// the updated topic. The increment happens in a single UPDATE so concurrent
// views never lose counts.
func RecordView(ctx context.Context, pool Pool, topicID string) (*models.Topic, error) {
	var topic models.Topic

	err := pool.QueryRow(ctx, `
		UPDATE topics
		SET view_count = view_count + 1
		WHERE id = $1
		RETURNING id, title, owner_id, created_at, view_count, message_count
	`, topicID).Scan(
		&topic.ID,
		&topic.Title,
		&topic.OwnerID,
		&topic.CreatedAt,
		&topic.ViewCount,
		&topic.MessageCount,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTopicNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to record topic view: %w", err)
	}

	return &topic, nil
}
