package auth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
)

type contextKey string

// UserEmailKey is the context key used to store the authenticated user's email.
const UserEmailKey contextKey = "user_email"

// RequireAuth middleware checks for a valid bearer token in the Authorization header.
// It extracts the token, validates it, and stores the user's email in the request context
// for use by downstream handlers. Returns 401 Unauthorized if authentication fails.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if authHeader == "" {
			log.Println("Auth: No Authorization header present")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Parse Authorization header: "Bearer <token>" (RFC 7235).
		// Bearer scheme is case-insensitive.
		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
			log.Println("Auth: Invalid Authorization header format")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.Join(fields[1:], " "))
		if token == "" {
			log.Println("Auth: Empty token after Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userEmail, err := ValidateToken(token)
		if err != nil {
			log.Printf("Auth: Token validation failed: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserEmailKey, userEmail)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserEmailFromContext returns the user email from the context.
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

// ValidateToken validates the token and returns the user's email. The site
// sits behind a forward-auth proxy that has already authenticated the user,
// so the token is the proxy-issued identity assertion.
// In test mode (FIELDSTATION_TEST_MODE=true), a token of the form
// "email:user@example.com" selects that user directly.
func ValidateToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(token) == "email:" {
		return "", fmt.Errorf("token is empty")
	}

	if os.Getenv("FIELDSTATION_TEST_MODE") == "true" {
		if strings.HasPrefix(token, "email:") {
			if email := strings.TrimPrefix(token, "email:"); email != "" {
				return email, nil
			}
		}
	}

	// TODO: validate the proxy assertion signature once the proxy exposes
	// its verification key.

	return "member@fieldstation.example", nil
}
