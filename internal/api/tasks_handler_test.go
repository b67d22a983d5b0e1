package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlab/fieldstation/internal/api"
	"github.com/meridianlab/fieldstation/internal/schedule"
	"github.com/meridianlab/fieldstation/internal/testutil"
)

func TestTasksHandler(t *testing.T) {
	pool := testutil.NewTestDB(t)

	const adminEmail = "admin@fieldstation.example"
	const memberEmail = "member@fieldstation.example"
	createAdmin(t, pool, adminEmail)

	registry := schedule.NewRegistry(pool, schedule.DefaultSpecs(time.Now()))
	handler := api.NewTasksHandler(pool, registry)

	t.Run("member cannot trigger registration", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/api/v1/admin/tasks/ensure", memberEmail, nil)
		rec := httptest.NewRecorder()

		handler.PostEnsure(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("first call registers the tasks", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/api/v1/admin/tasks/ensure", adminEmail, nil)
		rec := httptest.NewRecorder()

		handler.PostEnsure(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Tasks []schedule.TaskReport `json:"tasks"`
		}
		decodeJSON(t, rec, &payload)
		require.Len(t, payload.Tasks, 2)
		for _, report := range payload.Tasks {
			assert.Equal(t, schedule.OutcomeRecreated, report.Outcome)
		}
	})

	t.Run("repeat call finds them", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/api/v1/admin/tasks/ensure", adminEmail, nil)
		rec := httptest.NewRecorder()

		handler.PostEnsure(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Tasks []schedule.TaskReport `json:"tasks"`
		}
		decodeJSON(t, rec, &payload)
		require.Len(t, payload.Tasks, 2)
		for _, report := range payload.Tasks {
			assert.Equal(t, schedule.OutcomeFound, report.Outcome)
		}
	})
}
