package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// fakeTicketTx stages writes in memory; fakeTxRunner only applies them when
// the transaction function succeeds, mirroring commit/rollback.
type fakeTicketTx struct {
	ticket       *domain.Ticket
	commentCount int
	comments     []domain.Comment
	history      []domain.HistoryEntry
	nextID       int64
}

func (t *fakeTicketTx) clone() *fakeTicketTx {
	out := &fakeTicketTx{commentCount: t.commentCount, nextID: t.nextID}
	if t.ticket != nil {
		ticket := *t.ticket
		out.ticket = &ticket
	}
	out.comments = append(out.comments, t.comments...)
	out.history = append(out.history, t.history...)
	return out
}

func (t *fakeTicketTx) LockTicket(_ context.Context, id int64) (*domain.Ticket, error) {
	if t.ticket == nil || t.ticket.ID != id {
		return nil, pgx.ErrNoRows
	}
	ticket := *t.ticket
	return &ticket, nil
}

func (t *fakeTicketTx) UpdateTicket(_ context.Context, ticket *domain.Ticket) error {
	if t.ticket == nil || t.ticket.ID != ticket.ID {
		return pgx.ErrNoRows
	}
	updated := *ticket
	t.ticket = &updated
	return nil
}

func (t *fakeTicketTx) CountActiveComments(_ context.Context, _ int64) (int, error) {
	return t.commentCount + len(t.comments), nil
}

func (t *fakeTicketTx) InsertComment(_ context.Context, comment *domain.Comment) error {
	t.nextID++
	comment.ID = t.nextID
	t.comments = append(t.comments, *comment)
	return nil
}

func (t *fakeTicketTx) AppendHistory(_ context.Context, entry *domain.HistoryEntry) error {
	t.nextID++
	entry.ID = t.nextID
	t.history = append(t.history, *entry)
	return nil
}

type fakeTxRunner struct {
	tx *fakeTicketTx
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(tx repository.TicketTx) error) error {
	staged := r.tx.clone()
	if err := fn(staged); err != nil {
		return err
	}
	*r.tx = *staged
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	out := make([]events.EventType, 0, len(d.published))
	for _, event := range d.published {
		out = append(out, event.Type)
	}
	return out
}

func i64(v int64) *int64                                  { return &v }
func str(v string) *string                                { return &v }
func prio(v domain.TicketPriority) *domain.TicketPriority { return &v }

func newEngine(tx *fakeTicketTx) (*TransitionEngine, *fakeTxRunner, *recordingDispatcher) {
	runner := &fakeTxRunner{tx: tx}
	dispatcher := &recordingDispatcher{}
	engine := NewTransitionEngine(runner, newFakeCatalog(), dispatcher, zap.NewNop())
	return engine, runner, dispatcher
}

func openTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:              10,
		Subject:         "printer jam",
		Body:            "paper stuck in tray 2",
		StatusID:        1,
		DepartmentID:    1,
		OfficeSupportTo: 1,
		CreatorID:       3,
	}
}

func TestApplyUpdateNotFound(t *testing.T) {
	engine, _, _ := newEngine(&fakeTicketTx{})

	_, err := engine.ApplyUpdate(context.Background(), 99, tech(), TicketPatch{Subject: str("x")})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestApplyUpdateUnknownStatus(t *testing.T) {
	engine, _, _ := newEngine(&fakeTicketTx{ticket: openTicket()})

	_, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{StatusID: i64(99)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestApplyUpdatePlainFieldChangeLeavesLedgerAlone(t *testing.T) {
	tx := &fakeTicketTx{ticket: openTicket()}
	engine, runner, dispatcher := newEngine(tx)

	updated, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{
		Subject:  str("  printer jam in lobby  "),
		Priority: prio(domain.TicketPriorityHigh),
	})
	require.NoError(t, err)

	assert.Equal(t, "printer jam in lobby", updated.Subject)
	assert.Equal(t, domain.TicketPriorityHigh, *updated.Priority)
	assert.Equal(t, int64(1), updated.StatusID)
	assert.Empty(t, runner.tx.history)
	assert.Empty(t, dispatcher.published)
}

func TestApplyUpdateAssignmentForcesAssignedStatus(t *testing.T) {
	tx := &fakeTicketTx{ticket: openTicket()}
	engine, runner, dispatcher := newEngine(tx)
	actor := admin()

	updated, err := engine.ApplyUpdate(context.Background(), 10, actor, TicketPatch{AssigneeID: i64(2)})
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.StatusID, "assignment moves the ticket to the assigned status")
	require.Len(t, runner.tx.history, 1)
	assert.Equal(t, int64(2), runner.tx.history[0].StatusID)
	require.NotNil(t, runner.tx.history[0].ActorID)
	assert.Equal(t, actor.ID, *runner.tx.history[0].ActorID)
	assert.ElementsMatch(t, []events.EventType{events.EventTicketStatusChanged, events.EventTicketAssigned}, dispatcher.types())
}

func TestApplyUpdateReassignmentAppendsHistory(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(5)
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, dispatcher := newEngine(tx)

	updated, err := engine.ApplyUpdate(context.Background(), 10, admin(), TicketPatch{AssigneeID: i64(2)})
	require.NoError(t, err)

	assert.Equal(t, int64(2), *updated.AssigneeID)
	assert.Equal(t, int64(2), updated.StatusID)
	require.Len(t, runner.tx.history, 1)
	assert.Contains(t, dispatcher.types(), events.EventTicketAssigned)
}

func TestApplyUpdateSameAssigneeNoHistory(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(2)
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, _ := newEngine(tx)

	_, err := engine.ApplyUpdate(context.Background(), 10, admin(), TicketPatch{AssigneeID: i64(2)})
	require.NoError(t, err)
	assert.Empty(t, runner.tx.history)
}

func TestApplyUpdateExplicitStatusWinsOverForcedAssignment(t *testing.T) {
	tx := &fakeTicketTx{ticket: openTicket()}
	engine, runner, _ := newEngine(tx)

	updated, err := engine.ApplyUpdate(context.Background(), 10, admin(), TicketPatch{
		AssigneeID: i64(2),
		StatusID:   i64(1),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), updated.StatusID)
	require.Len(t, runner.tx.history, 1, "assignment still lands in the ledger")
	assert.Equal(t, int64(1), runner.tx.history[0].StatusID)
}

func TestCloseWithoutAssigneeRejected(t *testing.T) {
	tx := &fakeTicketTx{ticket: openTicket()}
	engine, runner, _ := newEngine(tx)

	_, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{StatusID: i64(3)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"))
	assert.Equal(t, int64(1), runner.tx.ticket.StatusID, "nothing committed")
	assert.Empty(t, runner.tx.history)
}

func TestCloseByNonAssigneeForbidden(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(5)
	tx := &fakeTicketTx{ticket: ticket, commentCount: 1}
	engine, runner, _ := newEngine(tx)

	_, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{StatusID: i64(3)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	assert.Equal(t, int64(2), runner.tx.ticket.StatusID)
}

func TestCloseWithoutAnyCommentRejected(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(2)
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, _ := newEngine(tx)

	_, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{StatusID: i64(3)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"))
	assert.Empty(t, runner.tx.comments)
	assert.Empty(t, runner.tx.history)
	assert.Equal(t, int64(2), runner.tx.ticket.StatusID)
}

func TestCloseWithInlineComment(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(2)
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, dispatcher := newEngine(tx)
	actor := tech()

	updated, err := engine.ApplyUpdate(context.Background(), 10, actor, TicketPatch{
		StatusID:       i64(3),
		ClosingComment: str("replaced the fuser unit"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), updated.StatusID)
	require.Len(t, runner.tx.comments, 1)
	assert.Equal(t, "replaced the fuser unit", runner.tx.comments[0].Body)
	assert.Equal(t, actor.ID, runner.tx.comments[0].AuthorID)
	require.Len(t, runner.tx.history, 1)
	assert.Equal(t, int64(3), runner.tx.history[0].StatusID)
	assert.ElementsMatch(t,
		[]events.EventType{events.EventTicketCommentAdded, events.EventTicketStatusChanged, events.EventTicketClosed},
		dispatcher.types())
}

func TestCloseWithExistingCommentSkipsInline(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(2)
	tx := &fakeTicketTx{ticket: ticket, commentCount: 2}
	engine, runner, _ := newEngine(tx)

	updated, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{StatusID: i64(3)})
	require.NoError(t, err)

	assert.Equal(t, int64(3), updated.StatusID)
	assert.Empty(t, runner.tx.comments, "no synthetic comment when one already exists")
}

func TestCloseBlankInlineCommentRejected(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(2)
	tx := &fakeTicketTx{ticket: ticket}
	engine, _, _ := newEngine(tx)

	_, err := engine.ApplyUpdate(context.Background(), 10, tech(), TicketPatch{
		StatusID:       i64(3),
		ClosingComment: str("   "),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_STATE"))
}

func TestCancelDoesNotRequireComment(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(5)
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, _ := newEngine(tx)

	updated, err := engine.ApplyUpdate(context.Background(), 10, admin(), TicketPatch{StatusID: i64(4)})
	require.NoError(t, err)

	assert.Equal(t, int64(4), updated.StatusID)
	assert.Empty(t, runner.tx.comments)
	require.Len(t, runner.tx.history, 1)
}

func TestFailedCloseCommitsNothing(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, dispatcher := newEngine(tx)

	// Assignment and close in one request, but the actor is not the new
	// assignee: the whole update must roll back, including the assignment.
	_, err := engine.ApplyUpdate(context.Background(), 10, admin(), TicketPatch{
		AssigneeID:     i64(2),
		StatusID:       i64(3),
		ClosingComment: str("done"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	assert.Nil(t, runner.tx.ticket.AssigneeID)
	assert.Equal(t, int64(2), runner.tx.ticket.StatusID)
	assert.Empty(t, runner.tx.comments)
	assert.Empty(t, runner.tx.history)
	assert.Empty(t, dispatcher.published)
}

func TestClearAssigneeWithZero(t *testing.T) {
	ticket := openTicket()
	ticket.StatusID = 2
	ticket.AssigneeID = i64(5)
	tx := &fakeTicketTx{ticket: ticket}
	engine, runner, _ := newEngine(tx)

	updated, err := engine.ApplyUpdate(context.Background(), 10, admin(), TicketPatch{AssigneeID: i64(0)})
	require.NoError(t, err)

	assert.Nil(t, updated.AssigneeID)
	assert.Empty(t, runner.tx.history, "unassignment is not a ledger transition")
}
