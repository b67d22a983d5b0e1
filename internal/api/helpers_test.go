package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meridianlab/fieldstation/internal/auth"
	"github.com/meridianlab/fieldstation/internal/db"
)

// authedRequest builds a request whose context already carries the caller's
// email, the way the auth middleware would leave it.
func authedRequest(t *testing.T, method, target, email string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	ctx := context.WithValue(req.Context(), auth.UserEmailKey, email)
	return req.WithContext(ctx)
}

func createAdmin(t *testing.T, pool db.Pool, email string) string {
	t.Helper()

	userID, err := db.GetOrCreateUser(context.Background(), pool, email)
	if err != nil {
		t.Fatalf("Failed to create admin user: %v", err)
	}
	if err := db.SetUserRole(context.Background(), pool, userID, "admin"); err != nil {
		t.Fatalf("Failed to promote admin user: %v", err)
	}
	return userID
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
}
