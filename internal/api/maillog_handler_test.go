package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/fieldstation/internal/api"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/models"
	"github.com/meridianlab/fieldstation/internal/testutil"
)

func TestMailLogHandler(t *testing.T) {
	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	const adminEmail = "admin@fieldstation.example"
	const memberEmail = "member@fieldstation.example"
	createAdmin(t, pool, adminEmail)

	// Seed one failed send through the service, as production would.
	failingSvc := mail.NewService(pool, &testutil.FakeMailer{Err: errors.New("relay unreachable")})
	entry, err := failingSvc.Send(ctx, &mail.Message{
		Subject:  "This week on the discussion board",
		Template: mail.TemplateBoardDigest,
		Data: map[string]string{
			"SiteName":  "Fieldstation",
			"TopicList": "  - Antenna alignment (2 messages)\n",
		},
		To: []string{"member@fieldstation.example"},
	})
	require.NoError(t, err)
	require.Equal(t, models.MailStatusFailed, entry.Status)

	mailer := &testutil.FakeMailer{}
	handler := api.NewMailLogHandler(pool, mail.NewService(pool, mailer))

	t.Run("member cannot see the log", func(t *testing.T) {
		req := authedRequest(t, http.MethodGet, "/api/v1/admin/mail/failed", memberEmail, nil)
		rec := httptest.NewRecorder()

		handler.GetFailed(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin lists failed sends", func(t *testing.T) {
		req := authedRequest(t, http.MethodGet, "/api/v1/admin/mail/failed", adminEmail, nil)
		rec := httptest.NewRecorder()

		handler.GetFailed(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Entries []models.MailLogEntry `json:"entries"`
		}
		decodeJSON(t, rec, &payload)
		require.Len(t, payload.Entries, 1)
		assert.Equal(t, entry.ID, payload.Entries[0].ID)
	})

	t.Run("admin resends an entry", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/api/v1/admin/mail/"+entry.ID+"/resend", adminEmail, nil)
		rec := httptest.NewRecorder()

		handler.PostResend(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resent models.MailLogEntry
		decodeJSON(t, rec, &resent)
		assert.Equal(t, models.MailStatusResent, resent.Status)

		require.Len(t, mailer.Attempts(), 1)
		assert.Equal(t, []string{"member@fieldstation.example"}, mailer.Attempts()[0].To)
	})

	t.Run("resend of unknown entry", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/api/v1/admin/mail/00000000-0000-0000-0000-000000000000/resend", adminEmail, nil)
		rec := httptest.NewRecorder()

		handler.PostResend(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed resend path", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/api/v1/admin/mail/"+entry.ID, adminEmail, nil)
		rec := httptest.NewRecorder()

		handler.PostResend(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
