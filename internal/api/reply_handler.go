package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/meridianlab/fieldstation/internal/db"
	ws "github.com/meridianlab/fieldstation/internal/websocket"
)

// ReplyHandler creates replies to board messages.
type ReplyHandler struct {
	pool db.Pool
	hub  *ws.Hub
}

func NewReplyHandler(pool db.Pool, hub *ws.Hub) *ReplyHandler {
	return &ReplyHandler{pool: pool, hub: hub}
}

type postReplyRequest struct {
	Body string `json:"body"`
}

// PostReply handles POST /api/v1/messages/{id}/replies.
func (h *ReplyHandler) PostReply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	// Path is /api/v1/messages/{id}/replies.
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/messages/")
	parentID := strings.TrimSuffix(path, "/replies")
	if parentID == "" || parentID == path || strings.Contains(parentID, "/") {
		http.Error(w, "message id is required", http.StatusBadRequest)
		return
	}

	var req postReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		return
	}

	msg, err := db.PostReply(ctx, h.pool, parentID, userID, req.Body)
	if err != nil {
		if errors.Is(err, db.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		log.Printf("ReplyHandler: Failed to post reply: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(ws.Event{
		Type:      "new_reply",
		TopicID:   msg.TopicID,
		MessageID: msg.ID,
		Depth:     msg.Depth,
	})

	WriteJSON(w, http.StatusCreated, msg)
}
