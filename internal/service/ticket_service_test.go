package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTicketRepo struct {
	tickets    map[int64]*domain.Ticket
	nextID     int64
	lastFilter repository.TicketFilter
	lastWindow uint64
	usedLatest bool
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[int64]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.nextID++
	ticket.ID = f.nextID
	stored := *ticket
	f.tickets[ticket.ID] = &stored
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *ticket
	return &out, nil
}

func (f *fakeTicketRepo) GetRowByID(ctx context.Context, id int64) (*repository.TicketListRow, error) {
	ticket, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &repository.TicketListRow{Ticket: *ticket, StatusName: "Nuevo"}, nil
}

func (f *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) (*repository.TicketPage, error) {
	f.lastFilter = filter
	f.usedLatest = false
	return &repository.TicketPage{}, nil
}

func (f *fakeTicketRepo) ListLatestWindow(_ context.Context, filter repository.TicketFilter, window uint64) (*repository.TicketPage, error) {
	f.lastFilter = filter
	f.lastWindow = window
	f.usedLatest = true
	return &repository.TicketPage{}, nil
}

func (f *fakeTicketRepo) SoftDelete(_ context.Context, id int64) error {
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	return nil
}

type fakeHistoryRepo struct {
	entries []domain.HistoryEntry
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, _ int64) ([]domain.HistoryEntry, error) {
	return f.entries, nil
}

type fakeCommentRepo struct {
	created []domain.Comment
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	comment.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(_ context.Context, _ int64) ([]domain.Comment, error) {
	return f.created, nil
}

type fakeAttachmentRepo struct {
	created []domain.AttachmentReference
}

func (f *fakeAttachmentRepo) Create(_ context.Context, ref *domain.AttachmentReference) error {
	ref.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *ref)
	return nil
}

func (f *fakeAttachmentRepo) ListByTicket(_ context.Context, _ int64) ([]domain.AttachmentReference, error) {
	return f.created, nil
}

type fakeCategoryRepo struct {
	categories map[int64]*domain.CategoryService
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id int64) (*domain.CategoryService, error) {
	category, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return category, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.CategoryService, error) {
	return nil, nil
}

type ticketServiceFixture struct {
	svc         *TicketService
	tickets     *fakeTicketRepo
	history     *fakeHistoryRepo
	comments    *fakeCommentRepo
	attachments *fakeAttachmentRepo
	dispatcher  *recordingDispatcher
}

func newTicketFixture() *ticketServiceFixture {
	tickets := newFakeTicketRepo()
	history := &fakeHistoryRepo{}
	comments := &fakeCommentRepo{}
	attachments := &fakeAttachmentRepo{}
	categories := &fakeCategoryRepo{categories: map[int64]*domain.CategoryService{
		1: {ID: 1, Name: "Hardware", Active: true},
		2: {ID: 2, Name: "Legacy", Active: false},
	}}
	dispatcher := &recordingDispatcher{}

	svc := NewTicketService(
		tickets, history, comments, attachments, categories,
		newResolver(), newFakeCatalog(),
		config.ListingConfig{DefaultLimit: 15, MaxLimit: 100, LatestWindow: 200},
		dispatcher, zap.NewNop(),
	)
	return &ticketServiceFixture{
		svc:         svc,
		tickets:     tickets,
		history:     history,
		comments:    comments,
		attachments: attachments,
		dispatcher:  dispatcher,
	}
}

func requester() *domain.User {
	deptID := int64(4)
	officeID := int64(6)
	return &domain.User{ID: 3, RoleName: "Usuario", DepartmentID: &deptID, OfficeID: &officeID}
}

func TestListUsesLatestWindow(t *testing.T) {
	fx := newTicketFixture()

	_, err := fx.svc.List(context.Background(), admin(), ListParams{Latest: true})
	require.NoError(t, err)
	assert.True(t, fx.tickets.usedLatest)
	assert.Equal(t, uint64(200), fx.tickets.lastWindow)
}

func TestListClampsPagination(t *testing.T) {
	fx := newTicketFixture()

	_, err := fx.svc.List(context.Background(), admin(), ListParams{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), fx.tickets.lastFilter.Limit)
	assert.Equal(t, uint64(20), fx.tickets.lastFilter.Offset)

	_, err = fx.svc.List(context.Background(), admin(), ListParams{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), fx.tickets.lastFilter.Limit, "limit capped")

	_, err = fx.svc.List(context.Background(), admin(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, uint64(15), fx.tickets.lastFilter.Limit, "default limit")
	assert.Equal(t, uint64(0), fx.tickets.lastFilter.Offset)
}

func TestListAppliesScopePredicate(t *testing.T) {
	fx := newTicketFixture()

	_, err := fx.svc.List(context.Background(), tech(), ListParams{Mode: QueueTechnician})
	require.NoError(t, err)
	require.NotNil(t, fx.tickets.lastFilter.Scope)

	sql, _, err := fx.tickets.lastFilter.Scope.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "t.assigned_user_id = ?")
}

func TestListPoolDeniedForGeneralRole(t *testing.T) {
	fx := newTicketFixture()

	_, err := fx.svc.ListPool(context.Background(), regular(), ListParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestListPoolPredicate(t *testing.T) {
	fx := newTicketFixture()

	_, err := fx.svc.ListPool(context.Background(), tech(), ListParams{})
	require.NoError(t, err)
	require.NotNil(t, fx.tickets.lastFilter.Scope)

	sql, _, err := fx.tickets.lastFilter.Scope.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "t.assigned_user_id IS NULL")
}

func TestCreateValidations(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, requester(), CreateTicketInput{Body: "b", OfficeSupportTo: 1})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "missing subject")

	_, err = fx.svc.Create(ctx, requester(), CreateTicketInput{Subject: "s", OfficeSupportTo: 1})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "missing body")

	_, err = fx.svc.Create(ctx, requester(), CreateTicketInput{Subject: "s", Body: "b"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "missing support office")

	noDept := &domain.User{ID: 9, RoleName: "Usuario"}
	_, err = fx.svc.Create(ctx, noDept, CreateTicketInput{Subject: "s", Body: "b", OfficeSupportTo: 1})
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"), "actor without department")

	inactive := int64(2)
	_, err = fx.svc.Create(ctx, requester(), CreateTicketInput{Subject: "s", Body: "b", OfficeSupportTo: 1, CategoryID: &inactive})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "inactive category")

	missing := int64(99)
	_, err = fx.svc.Create(ctx, requester(), CreateTicketInput{Subject: "s", Body: "b", OfficeSupportTo: 1, CategoryID: &missing})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"), "unknown category")
}

func TestCreateSetsDefaults(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()

	categoryID := int64(1)
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject:         "  vpn down  ",
		Body:            "cannot connect since monday",
		CategoryID:      &categoryID,
		OfficeSupportTo: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "vpn down", ticket.Subject)
	assert.Equal(t, int64(1), ticket.StatusID, "starts on the intake status")
	assert.Equal(t, actor.ID, ticket.CreatorID)
	assert.Equal(t, *actor.DepartmentID, ticket.DepartmentID)
	assert.Equal(t, actor.OfficeID, ticket.OfficeID)
	assert.Equal(t, "TKT-001", ticket.Code())
	require.Len(t, fx.dispatcher.published, 1)
	assert.Equal(t, "ticket_created", string(fx.dispatcher.published[0].Type))
}

func TestCreateWithInitialAssignee(t *testing.T) {
	fx := newTicketFixture()

	assignee := int64(2)
	ticket, err := fx.svc.Create(context.Background(), requester(), CreateTicketInput{
		Subject:         "printer jam",
		Body:            "tray 2 keeps jamming",
		OfficeSupportTo: 1,
		AssigneeID:      &assignee,
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, assignee, *ticket.AssigneeID)
	assert.Equal(t, int64(1), ticket.StatusID, "still starts on the intake status")
}

func TestGetComputesResolutionTime(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	detail, err := fx.svc.Get(context.Background(), actor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "-", detail.Resolution, "open tickets carry no resolution time")

	fx.tickets.tickets[ticket.ID].StatusID = 3
	assigned := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	fx.history.entries = []domain.HistoryEntry{
		{ID: 1, TicketID: ticket.ID, StatusID: 2, CreatedAt: assigned},
		{ID: 2, TicketID: ticket.ID, StatusID: 3, CreatedAt: assigned.Add(2*time.Hour + 5*time.Minute)},
	}

	detail, err = fx.svc.Get(context.Background(), actor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "2h 5m", detail.Resolution)
}

func TestGetResolutionNeedsBothMarkers(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	fx.tickets.tickets[ticket.ID].StatusID = 3
	fx.history.entries = []domain.HistoryEntry{
		{ID: 1, TicketID: ticket.ID, StatusID: 3, CreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}

	detail, err := fx.svc.Get(context.Background(), actor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "-", detail.Resolution, "no assignment marker in the ledger")
}

func TestGetRow(t *testing.T) {
	fx := newTicketFixture()
	ticket, err := fx.svc.Create(context.Background(), requester(), CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	row, err := fx.svc.GetRow(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, row.Ticket.ID)
	assert.Equal(t, "Nuevo", row.StatusName)

	_, err = fx.svc.GetRow(context.Background(), 999)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestGetVisibility(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	_, err = fx.svc.Get(context.Background(), actor, ticket.ID)
	assert.NoError(t, err, "creator can view")

	_, err = fx.svc.Get(context.Background(), admin(), ticket.ID)
	assert.NoError(t, err, "elevated can view")

	stranger := &domain.User{ID: 77, RoleName: "Usuario"}
	_, err = fx.svc.Get(context.Background(), stranger, ticket.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = fx.svc.Get(context.Background(), admin(), 999)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestAddComment(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	comment, err := fx.svc.AddComment(context.Background(), actor, ticket.ID, "  any update?  ")
	require.NoError(t, err)
	assert.Equal(t, "any update?", comment.Body)
	assert.Equal(t, actor.ID, comment.AuthorID)

	_, err = fx.svc.AddComment(context.Background(), actor, ticket.ID, "   ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestAddAttachments(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	refs, err := fx.svc.AddAttachments(context.Background(), actor, ticket.ID, []domain.AttachmentReference{
		{StorageKey: "uploads/a.png", FileName: "a.png", MimeType: "image/png", SizeBytes: 123},
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ticket.ID, refs[0].TicketID)
	assert.Equal(t, actor.ID, refs[0].UploaderID)

	_, err = fx.svc.AddAttachments(context.Background(), actor, ticket.ID, nil)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = fx.svc.AddAttachments(context.Background(), actor, ticket.ID, []domain.AttachmentReference{{FileName: "x"}})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestDeleteRequiresElevated(t *testing.T) {
	fx := newTicketFixture()
	actor := requester()
	ticket, err := fx.svc.Create(context.Background(), actor, CreateTicketInput{
		Subject: "s", Body: "b", OfficeSupportTo: 1,
	})
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), actor, ticket.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	require.NoError(t, fx.svc.Delete(context.Background(), admin(), ticket.ID))
}
