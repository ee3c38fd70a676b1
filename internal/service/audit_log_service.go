package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// AuditLogService writes a structured log line for every domain event. It is
// the only event consumer; outbound delivery is out of scope.
type AuditLogService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditLogService creates the service.
func NewAuditLogService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditLogService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handle)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handle)
	a.dispatcher.Subscribe(events.EventTicketAssigned, a.handle)
	a.dispatcher.Subscribe(events.EventTicketCommentAdded, a.handle)
	a.dispatcher.Subscribe(events.EventTicketClosed, a.handle)
}

func (a *AuditLogService) handle(_ context.Context, event events.Event) error {
	a.logger.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Int64("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}
