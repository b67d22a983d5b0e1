package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianlab/fieldstation/internal/api"
	"github.com/meridianlab/fieldstation/internal/auth"
	"github.com/meridianlab/fieldstation/internal/config"
	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/schedule"
	ws "github.com/meridianlab/fieldstation/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(cfg, pool)

	address := ":" + cfg.Port
	log.Printf("Fieldstation backend server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns a new HTTP handler for the Fieldstation API server.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool) http.Handler {
	mailer := mail.NewSMTPMailer(cfg)
	mailSvc := mail.NewService(dbPool, mailer)
	registry := schedule.NewRegistry(dbPool, schedule.DefaultSpecs(time.Now()))
	wsHub := ws.NewHub(100)

	topicsHandler := api.NewTopicsHandler(dbPool)
	replyHandler := api.NewReplyHandler(dbPool, wsHub)
	mailLogHandler := api.NewMailLogHandler(dbPool, mailSvc)
	tasksHandler := api.NewTasksHandler(dbPool, registry)
	membershipsHandler := api.NewMembershipsHandler(dbPool, mailSvc)
	wsHandler := api.NewWebSocketHandler(dbPool, wsHub)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/topics", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			topicsHandler.GetTopics(w, r)
		case http.MethodPost:
			topicsHandler.PostTopic(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Handle /api/v1/topics/{topic_id} pattern.
	mux.Handle("/api/v1/topics/", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		topicsHandler.GetTopic(w, r)
	})))

	// Handle /api/v1/messages/{message_id}/replies pattern.
	mux.Handle("/api/v1/messages/", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		replyHandler.PostReply(w, r)
	})))

	mux.Handle("/api/v1/memberships", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		membershipsHandler.PostRequest(w, r)
	})))

	mux.Handle("/api/v1/admin/memberships", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		membershipsHandler.GetPending(w, r)
	})))

	// Handle /api/v1/admin/memberships/{request_id} pattern.
	mux.Handle("/api/v1/admin/memberships/", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		membershipsHandler.PostDecision(w, r)
	})))

	mux.Handle("/api/v1/admin/mail/failed", auth.RequireAuth(http.HandlerFunc(mailLogHandler.GetFailed)))

	// Handle /api/v1/admin/mail/{entry_id}/resend pattern.
	mux.Handle("/api/v1/admin/mail/", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		mailLogHandler.PostResend(w, r)
	})))

	mux.Handle("/api/v1/admin/tasks/ensure", auth.RequireAuth(http.HandlerFunc(tasksHandler.PostEnsure)))

	// WebSocket handler handles its own authentication via query parameter
	// (since browsers can't set headers on WebSocket connections).
	mux.Handle("/api/v1/ws", http.HandlerFunc(wsHandler.Handle))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Fieldstation API is running")
}
