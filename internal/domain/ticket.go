package domain

import (
	"fmt"
	"time"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              int64
	Subject         string
	Body            string
	StatusID        int64
	Priority        *TicketPriority
	CategoryID      *int64
	DepartmentID    int64
	OfficeID        *int64
	OfficeSupportTo int64
	AssigneeID      *int64
	CreatorID       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Code renders the user-facing ticket identifier, e.g. TKT-007.
func (t *Ticket) Code() string {
	return fmt.Sprintf("TKT-%03d", t.ID)
}

// NeedsCategory reports whether the ticket still awaits categorization.
func (t *Ticket) NeedsCategory() bool {
	return t.CategoryID == nil || *t.CategoryID == 0
}

// NeedsAssignee reports whether the ticket still awaits a technician.
func (t *Ticket) NeedsAssignee() bool {
	return t.AssigneeID == nil || *t.AssigneeID == 0
}
