package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/meridianlab/fieldstation/internal/auth"
	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/models"
)

// GetUserIDFromContext extracts the user's email from context, resolves/creates the DB user,
// and writes appropriate HTTP errors when it fails. Returns (userID, true) on success.
// This is a shared helper used across handlers for consistent error handling.
func GetUserIDFromContext(ctx context.Context, w http.ResponseWriter, pool db.Pool) (string, bool) {
	email, ok := auth.GetUserEmailFromContext(ctx)
	if !ok {
		log.Println("API: No user email in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}

	userID, err := db.GetOrCreateUser(ctx, pool, email)
	if err != nil {
		log.Printf("API: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return "", false
	}

	return userID, true
}

// RequireAdminFromContext resolves the caller like GetUserIDFromContext and
// additionally checks the administrator role. Non-admins get 403.
func RequireAdminFromContext(ctx context.Context, w http.ResponseWriter, pool db.Pool) (string, bool) {
	userID, ok := GetUserIDFromContext(ctx, w, pool)
	if !ok {
		return "", false
	}

	user, err := db.GetUserByID(ctx, pool, userID)
	if err != nil {
		log.Printf("API: Failed to load user %s: %v", userID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return "", false
	}

	if user.Role != models.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return "", false
	}

	return userID, true
}

// ParsePaginationParams parses page and limit from query parameters.
// Returns default values (page=1, limit=defaultLimit) if parameters are missing or invalid.
func ParsePaginationParams(r *http.Request, defaultLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	return page, limit
}

// WriteJSON encodes v to the response with the JSON content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
	}
}
