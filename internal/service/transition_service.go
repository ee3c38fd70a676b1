package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketPatch carries the mutable fields of an update request. Nil means
// "leave unchanged"; a pointer to the zero value clears nullable fields.
type TicketPatch struct {
	Subject        *string
	Body           *string
	Priority       *domain.TicketPriority
	CategoryID     *int64
	AssigneeID     *int64
	StatusID       *int64
	ClosingComment *string
}

// TransitionEngine applies ticket updates atomically: status changes, the
// closing protocol, and the history ledger all commit in one transaction.
type TransitionEngine struct {
	tx         repository.TxRunner
	catalog    StatusLookup
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func NewTransitionEngine(tx repository.TxRunner, catalog StatusLookup, dispatcher events.Dispatcher, logger *zap.Logger) *TransitionEngine {
	return &TransitionEngine{tx: tx, catalog: catalog, dispatcher: dispatcher, logger: logger}
}

// ApplyUpdate mutates the ticket under a row lock and appends a history entry
// whenever the status changes or a technician is first assigned. Closing a
// ticket additionally requires an assignee, that the actor is that assignee,
// and at least one active comment (an inline closing comment satisfies this).
func (e *TransitionEngine) ApplyUpdate(ctx context.Context, ticketID int64, actor *domain.User, patch TicketPatch) (*domain.Ticket, error) {
	if patch.Priority != nil && !domain.ValidPriority(*patch.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(*patch.Priority)})
	}
	if patch.StatusID != nil {
		if _, ok := e.catalog.StatusByID(*patch.StatusID); !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status_id": *patch.StatusID})
		}
	}

	var (
		ticket      *domain.Ticket
		oldStatusID int64
		oldAssignee *int64
		published   []events.Event
	)

	err := e.tx.WithinTx(ctx, func(tx repository.TicketTx) error {
		current, err := tx.LockTicket(ctx, ticketID)
		if err != nil {
			return apperrors.MapError(err)
		}
		oldStatusID = current.StatusID
		if current.AssigneeID != nil {
			v := *current.AssigneeID
			oldAssignee = &v
		}

		if patch.Subject != nil {
			current.Subject = strings.TrimSpace(*patch.Subject)
		}
		if patch.Body != nil {
			current.Body = *patch.Body
		}
		if patch.Priority != nil {
			current.Priority = patch.Priority
		}
		if patch.CategoryID != nil {
			if *patch.CategoryID == 0 {
				current.CategoryID = nil
			} else {
				current.CategoryID = patch.CategoryID
			}
		}

		gainedAssignee := false
		if patch.AssigneeID != nil {
			if *patch.AssigneeID == 0 {
				current.AssigneeID = nil
			} else {
				gainedAssignee = oldAssignee == nil || *oldAssignee != *patch.AssigneeID
				current.AssigneeID = patch.AssigneeID
			}
		}

		// An assignment without an explicit status request moves the
		// ticket onto the assigned status, keeping assignee and status
		// consistent.
		if patch.StatusID != nil {
			current.StatusID = *patch.StatusID
		} else if gainedAssignee {
			assigned, ok := e.catalog.FirstByClass(domain.StatusClassAssigned)
			if !ok {
				return apperrors.NewInternalError(errNoAssignedStatus)
			}
			current.StatusID = assigned.ID
		}

		closing := e.catalog.Class(current.StatusID) == domain.StatusClassClosed && oldStatusID != current.StatusID
		if closing {
			if current.NeedsAssignee() {
				return apperrors.NewInvalidState("cannot close a ticket without an assignee", nil)
			}
			if *current.AssigneeID != actor.ID {
				return apperrors.NewForbidden("only the assigned technician may close the ticket")
			}
			count, err := tx.CountActiveComments(ctx, current.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if count == 0 {
				body := ""
				if patch.ClosingComment != nil {
					body = strings.TrimSpace(*patch.ClosingComment)
				}
				if body == "" {
					return apperrors.NewInvalidState("closing requires at least one comment", nil)
				}
				comment := &domain.Comment{TicketID: current.ID, AuthorID: actor.ID, Body: body}
				if err := tx.InsertComment(ctx, comment); err != nil {
					return apperrors.MapError(err)
				}
				published = append(published, e.newEvent(events.EventTicketCommentAdded, current.ID, actor.ID, events.TicketCommentAddedPayload{
					CommentID:   comment.ID,
					BodyPreview: preview(body),
				}))
			}
		}

		if err := tx.UpdateTicket(ctx, current); err != nil {
			return apperrors.MapError(err)
		}

		if current.StatusID != oldStatusID || gainedAssignee {
			entry := &domain.HistoryEntry{
				TicketID: current.ID,
				StatusID: current.StatusID,
				ActorID:  &actor.ID,
			}
			if err := tx.AppendHistory(ctx, entry); err != nil {
				return apperrors.MapError(err)
			}
		}

		if current.StatusID != oldStatusID {
			published = append(published, e.newEvent(events.EventTicketStatusChanged, current.ID, actor.ID, events.TicketStatusChangedPayload{
				OldStatusID: oldStatusID,
				NewStatusID: current.StatusID,
				NewClass:    e.catalog.Class(current.StatusID),
			}))
		}
		if gainedAssignee {
			published = append(published, e.newEvent(events.EventTicketAssigned, current.ID, actor.ID, events.TicketAssignedPayload{
				AssigneeID:    *current.AssigneeID,
				OldAssigneeID: oldAssignee,
			}))
		}
		if closing {
			published = append(published, e.newEvent(events.EventTicketClosed, current.ID, actor.ID, events.TicketClosedPayload{
				StatusID:   current.StatusID,
				AssigneeID: *current.AssigneeID,
			}))
		}

		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range published {
		if err := e.dispatcher.Publish(ctx, event); err != nil {
			e.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return ticket, nil
}

func (e *TransitionEngine) newEvent(eventType events.EventType, ticketID, actorID int64, payload interface{}) events.Event {
	return events.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

func preview(body string) string {
	const max = 120
	if len(body) <= max {
		return body
	}
	return body[:max]
}
