package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrMembershipRequestNotFound is returned when a requested membership
// request cannot be found.
var ErrMembershipRequestNotFound = errors.New("membership request not found")

// ErrMembershipAlreadyDecided is returned when trying to decide a request
// that is no longer pending.
var ErrMembershipAlreadyDecided = errors.New("membership request already decided")

// CreateMembershipRequest files a pending request for the user to join the
// given group.
func CreateMembershipRequest(ctx context.Context, pool Pool, userID, groupName string) (*models.MembershipRequest, error) {
	var req models.MembershipRequest

	err := pool.QueryRow(ctx, `
		INSERT INTO membership_requests (user_id, group_name)
		VALUES ($1, $2)
		RETURNING id, user_id, group_name, status, created_at, decided_at, decided_by
	`, userID, groupName).Scan(
		&req.ID,
		&req.UserID,
		&req.GroupName,
		&req.Status,
		&req.CreatedAt,
		&req.DecidedAt,
		&req.DecidedBy,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create membership request: %w", err)
	}

	return &req, nil
}

// ListPendingMembershipRequests returns all pending requests, oldest first.
func ListPendingMembershipRequests(ctx context.Context, pool Pool) ([]*models.MembershipRequest, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, user_id, group_name, status, created_at, decided_at, decided_by
		FROM membership_requests
		WHERE status = $1
		ORDER BY created_at ASC
	`, models.MembershipPending)

	if err != nil {
		return nil, fmt.Errorf("failed to list pending membership requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.MembershipRequest
	for rows.Next() {
		var req models.MembershipRequest
		if err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.GroupName,
			&req.Status,
			&req.CreatedAt,
			&req.DecidedAt,
			&req.DecidedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan membership request: %w", err)
		}
		requests = append(requests, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership requests: %w", err)
	}

	return requests, nil
}

// CountPendingMembershipRequests returns the number of pending requests.
func CountPendingMembershipRequests(ctx context.Context, pool Pool) (int64, error) {
	var count int64

	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM membership_requests WHERE status = $1
	`, models.MembershipPending).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("failed to count pending membership requests: %w", err)
	}

	return count, nil
}

// DecideMembershipRequest transitions a pending request to approved or
// rejected. The status guard is part of the UPDATE, so two concurrent
// decisions cannot both apply.
func DecideMembershipRequest(ctx context.Context, pool Pool, requestID, deciderID, status string) (*models.MembershipRequest, error) {
	if status != models.MembershipApproved && status != models.MembershipRejected {
		return nil, fmt.Errorf("invalid membership decision %q", status)
	}

	var req models.MembershipRequest

	err := pool.QueryRow(ctx, `
		UPDATE membership_requests
		SET status = $2, decided_at = now(), decided_by = $3
		WHERE id = $1 AND status = $4
		RETURNING id, user_id, group_name, status, created_at, decided_at, decided_by
	`, requestID, status, deciderID, models.MembershipPending).Scan(
		&req.ID,
		&req.UserID,
		&req.GroupName,
		&req.Status,
		&req.CreatedAt,
		&req.DecidedAt,
		&req.DecidedBy,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		// Either the id is unknown or the request was already decided.
		if _, getErr := GetMembershipRequest(ctx, pool, requestID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrMembershipAlreadyDecided
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decide membership request: %w", err)
	}

	return &req, nil
}

// GetMembershipRequest returns one membership request by id.
func GetMembershipRequest(ctx context.Context, pool Pool, requestID string) (*models.MembershipRequest, error) {
	var req models.MembershipRequest

	err := pool.QueryRow(ctx, `
		SELECT id, user_id, group_name, status, created_at, decided_at, decided_by
		FROM membership_requests
		WHERE id = $1
	`, requestID).Scan(
		&req.ID,
		&req.UserID,
		&req.GroupName,
		&req.Status,
		&req.CreatedAt,
		&req.DecidedAt,
		&req.DecidedBy,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMembershipRequestNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get membership request: %w", err)
	}

	return &req, nil
}
