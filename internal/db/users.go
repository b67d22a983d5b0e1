package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrUserNotFound is returned when a requested user cannot be found.
var ErrUserNotFound = errors.New("user not found")

// GetOrCreateUser returns the user's id for the given email.
// If no user exists with that email, it creates a new member account.
func GetOrCreateUser(ctx context.Context, pool Pool, email string) (string, error) {
	var userID string

	err := pool.QueryRow(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`, email).Scan(&userID)

	if err != nil {
		return "", fmt.Errorf("failed to get or create user: %w", err)
	}

	return userID, nil
}

// GetUserByID returns the user with the given id.
func GetUserByID(ctx context.Context, pool Pool, userID string) (*models.User, error) {
	var user models.User

	err := pool.QueryRow(ctx, `
		SELECT id, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// SetUserRole updates the user's role. Used by admin tooling and tests.
func SetUserRole(ctx context.Context, pool Pool, userID, role string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE id = $1
	`, userID, role)

	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListAdminEmails returns the email addresses of all administrators.
func ListAdminEmails(ctx context.Context, pool Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT email FROM users WHERE role = $1 ORDER BY email
	`, models.RoleAdmin)

	if err != nil {
		return nil, fmt.Errorf("failed to list admin emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan admin email: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin emails: %w", err)
	}

	return emails, nil
}

// ListMemberEmails returns the email addresses of all users, admins included.
func ListMemberEmails(ctx context.Context, pool Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT email FROM users ORDER BY email
	`)

	if err != nil {
		return nil, fmt.Errorf("failed to list member emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan member email: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member emails: %w", err)
	}

	return emails, nil
}
