package dto

import (
	"time"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject         string  `json:"subject" validate:"required,max=255"`
	Body            string  `json:"body" validate:"required"`
	Priority        *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	CategoryID      *int64  `json:"category_id" validate:"omitempty,gt=0"`
	AssigneeID      *int64  `json:"assignee_id" validate:"omitempty,gt=0"`
	OfficeSupportTo int64   `json:"office_support_to" validate:"required,gt=0"`
}

// UpdateTicketRequest payload. Absent fields are left unchanged; a zero id
// clears the nullable field.
type UpdateTicketRequest struct {
	Subject        *string `json:"subject" validate:"omitempty,max=255"`
	Body           *string `json:"body"`
	Priority       *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	CategoryID     *int64  `json:"category_id" validate:"omitempty,gte=0"`
	AssigneeID     *int64  `json:"assignee_id" validate:"omitempty,gte=0"`
	StatusID       *int64  `json:"status_id" validate:"omitempty,gt=0"`
	ClosingComment *string `json:"closing_comment"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required"`
}

// AttachmentInput describes one uploaded file reference.
type AttachmentInput struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
}

// CreateAttachmentsRequest payload.
type CreateAttachmentsRequest struct {
	Attachments []AttachmentInput `json:"attachments" validate:"required,min=1,dive"`
}

// TicketSummary is one listing row.
type TicketSummary struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Subject        string    `json:"subject"`
	StatusID       int64     `json:"status_id"`
	StatusName     string    `json:"status_name"`
	Priority       *string   `json:"priority"`
	CategoryID     *int64    `json:"category_id"`
	CategoryName   *string   `json:"category_name"`
	DepartmentName *string   `json:"department_name"`
	OfficeName     *string   `json:"office_name"`
	SupportOffice  *string   `json:"support_office"`
	AssigneeID     *int64    `json:"assignee_id"`
	AssigneeName   *string   `json:"assignee_name"`
	CreatorName    *string   `json:"creator_name"`
	NeedsCategory  bool      `json:"needs_category"`
	NeedsAssignee  bool      `json:"needs_assignee"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PageMeta describes pagination of a listing response.
type PageMeta struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Total  uint64 `json:"total"`
	Latest bool   `json:"latest,omitempty"`
}

// TicketListResponse wraps a page of summaries.
type TicketListResponse struct {
	Data []TicketSummary `json:"data"`
	Meta PageMeta        `json:"meta"`
}

// PoolTicket is one unassigned-pool row: whitespace-trimmed display text plus
// the category-active flag.
type PoolTicket struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	StatusID       int64     `json:"status_id"`
	StatusName     string    `json:"status_name"`
	Priority       *string   `json:"priority"`
	CategoryID     *int64    `json:"category_id"`
	CategoryName   *string   `json:"category_name"`
	CategoryActive bool      `json:"category_active"`
	CreatorName    *string   `json:"creator_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// PoolListResponse wraps a page of pool rows.
type PoolListResponse struct {
	Data []PoolTicket `json:"data"`
	Meta PageMeta     `json:"meta"`
}

// HistoryEntryResponse is one ledger row.
type HistoryEntryResponse struct {
	ID        int64     `json:"id"`
	StatusID  int64     `json:"status_id"`
	ActorID   *int64    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentResponse is one active comment.
type CommentResponse struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Body           string                 `json:"body"`
	ResolutionTime string                 `json:"resolution_time"`
	History        []HistoryEntryResponse `json:"history"`
	Comments       []CommentResponse      `json:"comments"`
	Attachments    []AttachmentResponse   `json:"attachments"`
}
