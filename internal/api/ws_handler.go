package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/meridianlab/fieldstation/internal/auth"
	"github.com/meridianlab/fieldstation/internal/db"
	ws "github.com/meridianlab/fieldstation/internal/websocket"
)

// WebSocketHandler handles the /api/v1/ws endpoint: live new-reply events
// for a topic the browser is watching.
type WebSocketHandler struct {
	pool db.Pool
	hub  *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(pool db.Pool, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{pool: pool, hub: hub}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The server runs behind a reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and subscribes it to
// the topic given in ?topic_id=. Authentication is handled via query
// parameter (?token=...) since browsers cannot set headers on WebSocket
// connections; the token is validated with the same ValidateToken function
// used by the RequireAuth middleware.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		// Fallback to Authorization header for tools that can set headers.
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			fields := strings.Fields(authHeader)
			if len(fields) >= 2 && strings.EqualFold(fields[0], "Bearer") {
				token = strings.TrimSpace(strings.Join(fields[1:], " "))
			}
		}
	}

	if token == "" {
		log.Printf("WebSocketHandler: No token provided")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userEmail, err := auth.ValidateToken(token)
	if err != nil {
		log.Printf("WebSocketHandler: Token validation failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := db.GetOrCreateUser(ctx, h.pool, userEmail); err != nil {
		log.Printf("WebSocketHandler: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	topicID := r.URL.Query().Get("topic_id")
	if topicID == "" {
		http.Error(w, "topic_id is required", http.StatusBadRequest)
		return
	}

	if _, err := db.GetTopicByID(ctx, h.pool, topicID); err != nil {
		if errors.Is(err, db.ErrTopicNotFound) {
			http.Error(w, "Topic not found", http.StatusNotFound)
			return
		}
		log.Printf("WebSocketHandler: Failed to load topic %s: %v", topicID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: Upgrade failed: %v", err)
		return
	}

	client := h.hub.Subscribe(topicID, conn)
	if client == nil {
		return
	}
	defer h.hub.Unsubscribe(topicID, client)

	// Drain the connection until the client goes away. The hub only pushes;
	// inbound frames are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
