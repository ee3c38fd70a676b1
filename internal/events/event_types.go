package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketClosed        EventType = "ticket_closed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code         string                 `json:"code"`
	Subject      string                 `json:"subject"`
	DepartmentID int64                  `json:"department_id"`
	CategoryID   *int64                 `json:"category_id,omitempty"`
	Priority     *domain.TicketPriority `json:"priority,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatusID int64              `json:"old_status_id"`
	NewStatusID int64              `json:"new_status_id"`
	NewClass    domain.StatusClass `json:"new_class"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID    int64  `json:"assignee_id"`
	OldAssigneeID *int64 `json:"old_assignee_id,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	StatusID   int64 `json:"status_id"`
	AssigneeID int64 `json:"assignee_id"`
}
