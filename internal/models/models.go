package models

import "time"

// User represents a Fieldstation member or administrator.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Roles stored in users.role.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Topic is a discussion thread container. Every topic has exactly one root
// message (depth 0); MessageCount always equals the number of message rows
// belonging to the topic, including the root.
type Topic struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	OwnerID      string    `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
	ViewCount    int64     `json:"view_count"`
	MessageCount int64     `json:"message_count"`
}

// Message is one post within a topic. ParentID is nil for the root message;
// Depth is the distance to the root (root = 0, child = parent + 1).
// Messages are immutable once created.
type Message struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	ParentID  *string   `json:"parent_id"`
	Depth     int       `json:"depth"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Mail log statuses.
const (
	MailStatusSent   = "sent"
	MailStatusFailed = "failed"
	MailStatusResent = "resent"
)

// MailLogEntry records one outbound email attempt. Address lists are nil when
// the original send carried no such list; an empty non-nil list means the
// list was present but empty. The distinction survives the round trip through
// storage (NULL column vs. empty string).
type MailLogEntry struct {
	ID           string            `json:"id"`
	Subject      string            `json:"subject"`
	Template     string            `json:"template"`
	TemplateData map[string]string `json:"template_data,omitempty"`
	To           []string          `json:"to"`
	CC           []string          `json:"cc"`
	BCC          []string          `json:"bcc"`
	ReplyTo      []string          `json:"reply_to"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ScheduledTask is the persisted row behind a named periodic background job.
// Repeats of 0 means the task repeats forever. When PreventDrift is set the
// runner advances NextRunTime by whole periods from the original schedule
// instead of from the actual run time.
type ScheduledTask struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Period       int64      `json:"period_seconds"`
	StartTime    time.Time  `json:"start_time"`
	NextRunTime  time.Time  `json:"next_run_time"`
	Repeats      int        `json:"repeats"`
	PreventDrift bool       `json:"prevent_drift"`
	Enabled      bool       `json:"enabled"`
	TimesRun     int64      `json:"times_run"`
	TimesFailed  int64      `json:"times_failed"`
	LastRunAt    *time.Time `json:"last_run_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Membership request statuses.
const (
	MembershipPending  = "pending"
	MembershipApproved = "approved"
	MembershipRejected = "rejected"
)

// MembershipRequest is one user's request to join a project group, decided
// by an administrator.
type MembershipRequest struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	GroupName string     `json:"group_name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at"`
	DecidedBy *string    `json:"decided_by"`
}
