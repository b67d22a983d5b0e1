package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/meridianlab/fieldstation/internal/db"
	"github.com/meridianlab/fieldstation/internal/mail"
	"github.com/meridianlab/fieldstation/internal/models"
)

// MembershipsHandler serves the group-membership approval workflow.
type MembershipsHandler struct {
	pool    db.Pool
	mailSvc *mail.Service
}

func NewMembershipsHandler(pool db.Pool, mailSvc *mail.Service) *MembershipsHandler {
	return &MembershipsHandler{pool: pool, mailSvc: mailSvc}
}

type membershipRequestBody struct {
	GroupName string `json:"group_name"`
}

// PostRequest files a membership request for the calling user.
func (h *MembershipsHandler) PostRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var req membershipRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.GroupName = strings.TrimSpace(req.GroupName)
	if req.GroupName == "" {
		http.Error(w, "group_name is required", http.StatusBadRequest)
		return
	}

	request, err := db.CreateMembershipRequest(ctx, h.pool, userID, req.GroupName)
	if err != nil {
		log.Printf("MembershipsHandler: Failed to create request: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusCreated, request)
}

// GetPending lists pending requests for review. Admin only.
func (h *MembershipsHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := RequireAdminFromContext(ctx, w, h.pool); !ok {
		return
	}

	requests, err := db.ListPendingMembershipRequests(ctx, h.pool)
	if err != nil {
		log.Printf("MembershipsHandler: Failed to list pending requests: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if requests == nil {
		requests = []*models.MembershipRequest{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

type membershipDecisionBody struct {
	Decision string `json:"decision"` // "approved" or "rejected"
}

// PostDecision handles POST /api/v1/admin/memberships/{id}: approves or
// rejects a pending request and notifies the requester by email. Admin only.
func (h *MembershipsHandler) PostDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminID, ok := RequireAdminFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	requestID := strings.TrimPrefix(r.URL.Path, "/api/v1/admin/memberships/")
	if requestID == "" || strings.Contains(requestID, "/") {
		http.Error(w, "membership request id is required", http.StatusBadRequest)
		return
	}

	var body membershipDecisionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if body.Decision != models.MembershipApproved && body.Decision != models.MembershipRejected {
		http.Error(w, "decision must be approved or rejected", http.StatusBadRequest)
		return
	}

	request, err := db.DecideMembershipRequest(ctx, h.pool, requestID, adminID, body.Decision)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrMembershipRequestNotFound):
			http.Error(w, "Membership request not found", http.StatusNotFound)
		case errors.Is(err, db.ErrMembershipAlreadyDecided):
			http.Error(w, "Membership request already decided", http.StatusConflict)
		default:
			log.Printf("MembershipsHandler: Failed to decide request %s: %v", requestID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.notifyRequester(ctx, request)

	WriteJSON(w, http.StatusOK, request)
}

// notifyRequester emails the decision to the requesting user. The outcome is
// recorded in the dispatch log; a transport failure does not fail the
// decision itself.
func (h *MembershipsHandler) notifyRequester(ctx context.Context, request *models.MembershipRequest) {
	user, err := db.GetUserByID(ctx, h.pool, request.UserID)
	if err != nil {
		log.Printf("MembershipsHandler: Failed to load requester %s: %v", request.UserID, err)
		return
	}

	_, err = h.mailSvc.Send(ctx, &mail.Message{
		Subject:  "Your membership request was " + request.Status,
		Template: mail.TemplateMembershipDecision,
		Data: map[string]string{
			"SiteName":  "Fieldstation",
			"GroupName": request.GroupName,
			"Decision":  request.Status,
		},
		To: []string{user.Email},
	})
	if err != nil {
		log.Printf("MembershipsHandler: Failed to record decision mail: %v", err)
	}
}
