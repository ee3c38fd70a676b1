package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	transitions *service.TransitionEngine
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, transitions *service.TransitionEngine) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, transitions: transitions}
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	params := parseListQuery(c)

	page, err := h.tickets.List(c.UserContext(), actor, params)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(page, params))
}

// Pool GET /tickets/pool.
func (h *TicketsHandler) Pool(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	params := parseListQuery(c)
	params.Mode = service.QueueDefault
	params.Latest = false

	page, err := h.tickets.ListPool(c.UserContext(), actor, params)
	if err != nil {
		return err
	}
	return c.JSON(poolResponse(page, params))
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	detail, err := h.tickets.Get(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.CreateTicketInput{
		Subject:         req.Subject,
		Body:            req.Body,
		Priority:        priorityFromString(req.Priority),
		CategoryID:      req.CategoryID,
		AssigneeID:      req.AssigneeID,
		OfficeSupportTo: req.OfficeSupportTo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":   ticket.ID,
		"code": ticket.Code(),
	}})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	ticket, err := h.transitions.ApplyUpdate(c.UserContext(), id, actor, service.TicketPatch{
		Subject:        req.Subject,
		Body:           req.Body,
		Priority:       priorityFromString(req.Priority),
		CategoryID:     req.CategoryID,
		AssigneeID:     req.AssigneeID,
		StatusID:       req.StatusID,
		ClosingComment: req.ClosingComment,
	})
	if err != nil {
		return err
	}

	row, err := h.tickets.GetRow(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(row)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	comment, err := h.tickets.AddComment(c.UserContext(), actor, id, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(*comment)})
}

// AddAttachments POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachments(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreateAttachmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	refs := make([]domain.AttachmentReference, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		refs = append(refs, domain.AttachmentReference{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	created, err := h.tickets.AddAttachments(c.UserContext(), actor, id, refs)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(created))
	for _, ref := range created {
		items = append(items, attachmentResponse(ref))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": items})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func requireActor(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func parseListQuery(c *fiber.Ctx) service.ListParams {
	params := service.ListParams{
		Mode:       service.QueueMode(strings.ToLower(c.Query("mode"))),
		ShowClosed: parseBool(c.Query("show_closed")),
		Latest:     parseBool(c.Query("latest")),
		Search:     c.Query("search"),
		SortBy:     c.Query("sort_by"),
		SortDesc:   strings.EqualFold(c.Query("sort_dir"), "desc"),
		Page:       parseInt(c.Query("page"), 1),
		Limit:      parseInt(c.Query("limit"), 0),
	}

	params.StatusID = parseOptionalID(c.Query("status_id"))
	params.CategoryID = parseOptionalID(c.Query("category_id"))
	params.OfficeID = parseOptionalID(c.Query("office_id"))
	params.OfficeSupportToID = parseOptionalID(c.Query("office_support_to"))
	params.DepartmentID = parseOptionalID(c.Query("department_id"))
	params.AssigneeID = parseOptionalID(c.Query("assignee_id"))
	params.Priority = priorityFromQuery(c.Query("priority"))
	params.CreatedFrom = parseTime(c.Query("created_from"))
	params.CreatedTo = parseTime(c.Query("created_to"))
	return params
}

func listResponse(page *repository.TicketPage, params service.ListParams) dto.TicketListResponse {
	items := make([]dto.TicketSummary, 0, len(page.Rows))
	for i := range page.Rows {
		items = append(items, ticketSummary(&page.Rows[i]))
	}
	return dto.TicketListResponse{
		Data: items,
		Meta: pageMeta(page, params),
	}
}

func poolResponse(page *repository.TicketPage, params service.ListParams) dto.PoolListResponse {
	items := make([]dto.PoolTicket, 0, len(page.Rows))
	for i := range page.Rows {
		items = append(items, poolRow(&page.Rows[i]))
	}
	return dto.PoolListResponse{
		Data: items,
		Meta: pageMeta(page, params),
	}
}

func poolRow(row *repository.TicketListRow) dto.PoolTicket {
	t := &row.Ticket
	out := dto.PoolTicket{
		ID:             t.ID,
		Code:           t.Code(),
		Subject:        strings.TrimSpace(t.Subject),
		Body:           strings.TrimSpace(t.Body),
		StatusID:       t.StatusID,
		StatusName:     row.StatusName,
		CategoryID:     t.CategoryID,
		CategoryName:   row.CategoryName,
		CategoryActive: row.CategoryActive,
		CreatorName:    row.CreatorName,
		CreatedAt:      t.CreatedAt,
	}
	if t.Priority != nil {
		value := string(*t.Priority)
		out.Priority = &value
	}
	return out
}

func pageMeta(page *repository.TicketPage, params service.ListParams) dto.PageMeta {
	limit := int(page.Limit)
	if limit == 0 {
		limit = params.Limit
	}
	return dto.PageMeta{
		Page:   max(params.Page, 1),
		Limit:  limit,
		Total:  page.Total,
		Latest: params.Latest,
	}
}

func ticketSummary(row *repository.TicketListRow) dto.TicketSummary {
	t := &row.Ticket
	summary := dto.TicketSummary{
		ID:             t.ID,
		Code:           t.Code(),
		Subject:        t.Subject,
		StatusID:       t.StatusID,
		StatusName:     row.StatusName,
		CategoryID:     t.CategoryID,
		CategoryName:   row.CategoryName,
		DepartmentName: row.DepartmentName,
		OfficeName:     row.OfficeName,
		SupportOffice:  row.SupportOffice,
		AssigneeID:     t.AssigneeID,
		AssigneeName:   row.AssigneeName,
		CreatorName:    row.CreatorName,
		NeedsCategory:  t.NeedsCategory(),
		NeedsAssignee:  t.NeedsAssignee(),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.Priority != nil {
		value := string(*t.Priority)
		summary.Priority = &value
	}
	return summary
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	out := dto.TicketDetailResponse{
		TicketSummary:  ticketSummary(detail.Row),
		Body:           detail.Row.Ticket.Body,
		ResolutionTime: detail.Resolution,
		History:        make([]dto.HistoryEntryResponse, 0, len(detail.History)),
		Comments:       make([]dto.CommentResponse, 0, len(detail.Comments)),
		Attachments:    make([]dto.AttachmentResponse, 0, len(detail.Attachments)),
	}
	for _, entry := range detail.History {
		out.History = append(out.History, dto.HistoryEntryResponse{
			ID:        entry.ID,
			StatusID:  entry.StatusID,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		})
	}
	for _, comment := range detail.Comments {
		out.Comments = append(out.Comments, commentResponse(comment))
	}
	for _, ref := range detail.Attachments {
		out.Attachments = append(out.Attachments, attachmentResponse(ref))
	}
	return out
}

func commentResponse(comment domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func attachmentResponse(ref domain.AttachmentReference) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:         ref.ID,
		FileName:   ref.FileName,
		MimeType:   ref.MimeType,
		SizeBytes:  ref.SizeBytes,
		StorageKey: ref.StorageKey,
		CreatedAt:  ref.CreatedAt,
	}
}

func priorityFromString(value *string) *domain.TicketPriority {
	if value == nil || *value == "" {
		return nil
	}
	priority := domain.TicketPriority(strings.ToUpper(*value))
	return &priority
}

func priorityFromQuery(value string) *domain.TicketPriority {
	if value == "" {
		return nil
	}
	priority := domain.TicketPriority(strings.ToUpper(value))
	return &priority
}

func parseOptionalID(value string) *int64 {
	if value == "" {
		return nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	return nil
}
