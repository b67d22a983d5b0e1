package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/models"
)

// MailLogHandler serves the administrative mail dispatch log screens.
type MailLogHandler struct {
	pool    db.Pool
	mailSvc *mail.Service
}

func NewMailLogHandler(pool db.Pool, mailSvc *mail.Service) *MailLogHandler {
	return &MailLogHandler{pool: pool, mailSvc: mailSvc}
}

// GetFailed returns all failed sends for review. Admin only.
func (h *MailLogHandler) GetFailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := RequireAdminFromContext(ctx, w, h.pool); !ok {
		return
	}

	entries, err := h.mailSvc.ListFailed(ctx)
	if err != nil {
		log.Printf("MailLogHandler: Failed to list failed mail: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []*models.MailLogEntry{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// PostResend handles POST /api/v1/admin/mail/{id}/resend. Admin only.
func (h *MailLogHandler) PostResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := RequireAdminFromContext(ctx, w, h.pool); !ok {
		return
	}

	// Path is /api/v1/admin/mail/{id}/resend.
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/mail/")
	entryID := strings.TrimSuffix(path, "/resend")
	if entryID == "" || entryID == path || strings.Contains(entryID, "/") {
		http.Error(w, "mail log entry id is required", http.StatusBadRequest)
		return
	}

	entry, err := h.mailSvc.Resend(ctx, entryID)
	if err != nil {
		if errors.Is(err, db.ErrMailLogEntryNotFound) {
			http.Error(w, "Mail log entry not found", http.StatusNotFound)
			return
		}
		log.Printf("MailLogHandler: Failed to resend entry %s: %v", entryID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, entry)
}
