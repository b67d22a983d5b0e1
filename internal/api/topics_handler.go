package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/meridianlab/fieldstation/internal/board"
	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/models"
)

// TopicsHandler serves the discussion board's topic collection.
type TopicsHandler struct {
	pool db.Pool
}

func NewTopicsHandler(pool db.Pool) *TopicsHandler {
	return &TopicsHandler{pool: pool}
}

// GetTopics returns a page of topics, newest first.
func (h *TopicsHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := GetUserIDFromContext(ctx, w, h.pool); !ok {
		return
	}

	page, limit := ParsePaginationParams(r, 25)
	offset := (page - 1) * limit

	topics, err := db.ListTopics(ctx, h.pool, limit, offset)
	if err != nil {
		log.Printf("TopicsHandler: Failed to list topics: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if topics == nil {
		topics = []*models.Topic{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"topics": topics,
		"page":   page,
		"limit":  limit,
	})
}

type createTopicRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PostTopic creates a topic together with its root message.
func (h *TopicsHandler) PostTopic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		http.Error(w, "title and body are required", http.StatusBadRequest)
		return
	}

	topic, err := db.CreateTopic(ctx, h.pool, req.Title, userID, req.Body)
	if err != nil {
		log.Printf("TopicsHandler: Failed to create topic: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusCreated, topic)
}

// topicView is the payload for a single-topic read: the topic row (with its
// freshly bumped view count) and the assembled reply tree.
type topicView struct {
	Topic  *models.Topic `json:"topic"`
	Thread *board.Node   `json:"thread"`
}

// GetTopic records a view on the topic and returns it with its reply tree.
func (h *TopicsHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := GetUserIDFromContext(ctx, w, h.pool); !ok {
		return
	}

	topicID := strings.TrimPrefix(r.URL.Path, "/api/v1/topics/")
	if topicID == "" || strings.Contains(topicID, "/") {
		http.Error(w, "topic id is required", http.StatusBadRequest)
		return
	}

	topic, err := db.RecordView(ctx, h.pool, topicID)
	if err != nil {
		if errors.Is(err, db.ErrTopicNotFound) {
			http.Error(w, "Topic not found", http.StatusNotFound)
			return
		}
		log.Printf("TopicsHandler: Failed to record view: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	messages, err := db.GetMessagesForTopic(ctx, h.pool, topic.ID)
	if err != nil {
		log.Printf("TopicsHandler: Failed to get messages: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	thread, err := board.BuildThread(messages)
	if err != nil {
		log.Printf("TopicsHandler: Failed to assemble thread for topic %s: %v", topic.ID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, topicView{Topic: topic, Thread: thread})
}
