package api

import (
	"log"
	"net/http"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/schedule"
)

// TasksHandler exposes the scheduled-task registry health check.
type TasksHandler struct {
	pool     db.Pool
	registry *schedule.Registry
}

func NewTasksHandler(pool db.Pool, registry *schedule.Registry) *TasksHandler {
	return &TasksHandler{pool: pool, registry: registry}
}

// PostEnsure re-registers any missing scheduled tasks and reports the state
// of each. Safe to call on every health check; existing tasks are never
// duplicated or rescheduled. Admin only.
func (h *TasksHandler) PostEnsure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := RequireAdminFromContext(ctx, w, h.pool); !ok {
		return
	}

	reports, err := h.registry.EnsureRegistered(ctx)
	if err != nil {
		log.Printf("TasksHandler: Failed to ensure tasks: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"tasks": reports})
}
