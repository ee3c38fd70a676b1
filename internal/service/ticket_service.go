package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ListParams are the caller-supplied listing options before scope resolution
// and pagination clamping.
type ListParams struct {
	Mode       QueueMode
	ShowClosed bool
	Latest     bool

	Search            string
	StatusID          *int64
	Priority          *domain.TicketPriority
	CategoryID        *int64
	OfficeID          *int64
	OfficeSupportToID *int64
	DepartmentID      *int64
	AssigneeID        *int64
	CreatedFrom       *time.Time
	CreatedTo         *time.Time

	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// CreateTicketInput carries the fields accepted when opening a ticket.
type CreateTicketInput struct {
	Subject         string
	Body            string
	Priority        *domain.TicketPriority
	CategoryID      *int64
	AssigneeID      *int64
	OfficeSupportTo int64
}

// TicketDetail aggregates everything the detail view renders. Resolution is
// the staff-table resolution string, "-" while the ticket is not closed.
type TicketDetail struct {
	Row         *repository.TicketListRow
	History     []domain.HistoryEntry
	Comments    []domain.Comment
	Attachments []domain.AttachmentReference
	Resolution  string
}

// TicketService implements listing, creation and the read side of tickets.
// Mutations that touch status or assignment go through the TransitionEngine.
type TicketService struct {
	tickets     repository.TicketRepository
	histories   repository.HistoryRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	categories  repository.CategoryRepository
	scope       *ScopeResolver
	catalog     StatusLookup
	listing     config.ListingConfig
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

func NewTicketService(
	tickets repository.TicketRepository,
	histories repository.HistoryRepository,
	comments repository.CommentRepository,
	attachments repository.AttachmentRepository,
	categories repository.CategoryRepository,
	scope *ScopeResolver,
	catalog StatusLookup,
	listing config.ListingConfig,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		tickets:     tickets,
		histories:   histories,
		comments:    comments,
		attachments: attachments,
		categories:  categories,
		scope:       scope,
		catalog:     catalog,
		listing:     listing,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// List returns one page of tickets visible to the actor. Latest mode pages
// within the most recent window instead of the full corpus.
func (s *TicketService) List(ctx context.Context, actor *domain.User, params ListParams) (*repository.TicketPage, error) {
	scopePred, err := s.scope.Resolve(actor, params.Mode, params.ShowClosed)
	if err != nil {
		return nil, err
	}

	filter := s.buildFilter(params)
	filter.Scope = scopePred

	if params.Latest {
		filter.Latest = true
		return s.tickets.ListLatestWindow(ctx, filter, uint64(s.listing.LatestWindow))
	}
	return s.tickets.List(ctx, filter)
}

// ListPool returns the unassigned pool: no technician, an active category and
// a non-terminal status. Support and elevated roles only.
func (s *TicketService) ListPool(ctx context.Context, actor *domain.User, params ListParams) (*repository.TicketPage, error) {
	if s.scope.RoleScope(actor.RoleName) == ScopeGeneral {
		return nil, apperrors.NewUnauthorized("the unassigned pool requires a support role")
	}

	filter := s.buildFilter(params)
	filter.Scope = s.scope.PoolPredicate()
	return s.tickets.List(ctx, filter)
}

// Create opens a ticket for the actor. The actor must belong to a department;
// the ticket starts on the intake status and gets no history entry until its
// first transition.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(*input.Priority)})
	}
	if actor.DepartmentID == nil {
		return nil, apperrors.NewInvalidState("actor has no department to file the ticket under", nil)
	}
	if input.OfficeSupportTo == 0 {
		return nil, apperrors.NewValidationError("office_support_to is required", nil)
	}
	if input.CategoryID != nil {
		category, err := s.categories.GetByID(ctx, *input.CategoryID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !category.Active {
			return nil, apperrors.NewValidationError("category is inactive", map[string]any{"category_id": *input.CategoryID})
		}
	}

	intake, ok := s.catalog.FirstByClass(domain.StatusClassIntake)
	if !ok {
		return nil, apperrors.NewInternalError(errNoIntakeStatus)
	}

	ticket := &domain.Ticket{
		Subject:         subject,
		Body:            input.Body,
		StatusID:        intake.ID,
		Priority:        input.Priority,
		CategoryID:      input.CategoryID,
		AssigneeID:      input.AssigneeID,
		DepartmentID:    *actor.DepartmentID,
		OfficeID:        actor.OfficeID,
		OfficeSupportTo: input.OfficeSupportTo,
		CreatorID:       actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor.ID, events.TicketCreatedPayload{
		Code:         ticket.Code(),
		Subject:      ticket.Subject,
		DepartmentID: ticket.DepartmentID,
		CategoryID:   ticket.CategoryID,
		Priority:     ticket.Priority,
	})
	return ticket, nil
}

// Get returns the detail view, including the full history ledger, active
// comments and attachment references.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id int64) (*TicketDetail, error) {
	row, err := s.tickets.GetRowByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeView(actor, &row.Ticket); err != nil {
		return nil, err
	}

	history, err := s.histories.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	comments, err := s.comments.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &TicketDetail{
		Row:         row,
		History:     history,
		Comments:    comments,
		Attachments: attachments,
		Resolution:  s.resolutionTime(row.Ticket.StatusID, history),
	}, nil
}

// resolutionTime derives the elapsed time between the first assignment marker
// and the first closing marker in the ledger. Only closed tickets carry one.
func (s *TicketService) resolutionTime(statusID int64, history []domain.HistoryEntry) string {
	if s.catalog.Class(statusID) != domain.StatusClassClosed {
		return FormatResolution(nil)
	}
	var assigned, closed *time.Time
	for i := range history {
		switch s.catalog.Class(history[i].StatusID) {
		case domain.StatusClassAssigned:
			if assigned == nil {
				assigned = &history[i].CreatedAt
			}
		case domain.StatusClassClosed:
			if closed == nil {
				closed = &history[i].CreatedAt
			}
		}
	}
	if assigned == nil || closed == nil || closed.Before(*assigned) {
		return FormatResolution(nil)
	}
	minutes := closed.Sub(*assigned).Minutes()
	return FormatResolution(&minutes)
}

// GetRow returns the joined listing row without a visibility check. Mutation
// handlers use it to echo the updated ticket with resolved display names.
func (s *TicketService) GetRow(ctx context.Context, id int64) (*repository.TicketListRow, error) {
	row, err := s.tickets.GetRowByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return row, nil
}

// AddComment appends an active comment to the ticket.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID int64, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeView(actor, ticket); err != nil {
		return nil, err
	}

	comment := &domain.Comment{TicketID: ticketID, AuthorID: actor.ID, Body: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventTicketCommentAdded, ticketID, actor.ID, events.TicketCommentAddedPayload{
		CommentID:   comment.ID,
		BodyPreview: preview(body),
	})
	return comment, nil
}

// AddAttachments records attachment metadata for the ticket. Blob storage
// happens upstream; only references are kept.
func (s *TicketService) AddAttachments(ctx context.Context, actor *domain.User, ticketID int64, refs []domain.AttachmentReference) ([]domain.AttachmentReference, error) {
	if len(refs) == 0 {
		return nil, apperrors.NewValidationError("at least one attachment is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeView(actor, ticket); err != nil {
		return nil, err
	}

	out := make([]domain.AttachmentReference, 0, len(refs))
	for _, ref := range refs {
		ref.TicketID = ticketID
		ref.UploaderID = actor.ID
		if strings.TrimSpace(ref.StorageKey) == "" || strings.TrimSpace(ref.FileName) == "" {
			return nil, apperrors.NewValidationError("attachment storage key and file name are required", nil)
		}
		if err := s.attachments.Create(ctx, &ref); err != nil {
			return nil, apperrors.MapError(err)
		}
		out = append(out, ref)
	}
	return out, nil
}

// Delete soft-deletes a ticket. Elevated roles only.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if s.scope.RoleScope(actor.RoleName) != ScopeElevated {
		return apperrors.NewForbidden("deleting tickets requires an elevated role")
	}
	if err := s.tickets.SoftDelete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// authorizeView gates the single-ticket surfaces: elevated roles see all,
// everyone else only tickets they created or are assigned to.
func (s *TicketService) authorizeView(actor *domain.User, ticket *domain.Ticket) error {
	if s.scope.RoleScope(actor.RoleName) == ScopeElevated {
		return nil
	}
	if ticket.CreatorID == actor.ID {
		return nil
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID {
		return nil
	}
	return apperrors.NewForbidden("not allowed to view this ticket")
}

func (s *TicketService) buildFilter(params ListParams) repository.TicketFilter {
	limit := params.Limit
	if limit <= 0 {
		limit = s.listing.DefaultLimit
	}
	if limit > s.listing.MaxLimit {
		limit = s.listing.MaxLimit
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}

	return repository.TicketFilter{
		Search:            params.Search,
		StatusID:          params.StatusID,
		Priority:          params.Priority,
		CategoryID:        params.CategoryID,
		OfficeID:          params.OfficeID,
		OfficeSupportToID: params.OfficeSupportToID,
		DepartmentID:      params.DepartmentID,
		AssigneeID:        params.AssigneeID,
		CreatedFrom:       params.CreatedFrom,
		CreatedTo:         params.CreatedTo,
		SortBy:            params.SortBy,
		SortDesc:          params.SortDesc,
		Limit:             uint64(limit),
		Offset:            uint64((page - 1) * limit),
	}
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID, actorID int64, payload interface{}) {
	event := events.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
