package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketTx is the write surface available inside a ticket transaction. The
// transition engine performs its whole closing protocol through it so that
// either every write commits or none are visible.
type TicketTx interface {
	// LockTicket loads the ticket row under a row-level lock, serializing
	// concurrent transitions on the same ticket.
	LockTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	CountActiveComments(ctx context.Context, ticketID int64) (int, error)
	InsertComment(ctx context.Context, comment *domain.Comment) error
	AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error
}

// TxRunner opens a storage transaction and runs fn inside it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx TicketTx) error) error
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner builds a TxRunner over a pgx pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

func (r *pgxTxRunner) WithinTx(ctx context.Context, fn func(tx TicketTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&pgxTicketTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgxTicketTx struct {
	tx pgx.Tx
}

func (t *pgxTicketTx) LockTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, subject, body, status_id, priority, category_service_id, department_id,
               office_id, office_support_to, assigned_user_id, user_id, created_at, updated_at, deleted_at
        FROM tickets
        WHERE id = $1 AND deleted_at IS NULL
        FOR UPDATE`
	var ticket domain.Ticket
	var priority sql.NullString
	if err := t.tx.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Body,
		&ticket.StatusID,
		&priority,
		&ticket.CategoryID,
		&ticket.DepartmentID,
		&ticket.OfficeID,
		&ticket.OfficeSupportTo,
		&ticket.AssigneeID,
		&ticket.CreatorID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DeletedAt,
	); err != nil {
		return nil, err
	}
	if priority.Valid {
		value := domain.TicketPriority(priority.String)
		ticket.Priority = &value
	}
	return &ticket, nil
}

func (t *pgxTicketTx) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets
        SET subject=$1, body=$2, status_id=$3, priority=$4, category_service_id=$5,
            assigned_user_id=$6, updated_at=NOW()
        WHERE id=$7`
	var priority *string
	if ticket.Priority != nil {
		value := string(*ticket.Priority)
		priority = &value
	}
	cmd, err := t.tx.Exec(ctx, query,
		ticket.Subject,
		ticket.Body,
		ticket.StatusID,
		priority,
		ticket.CategoryID,
		ticket.AssigneeID,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (t *pgxTicketTx) CountActiveComments(ctx context.Context, ticketID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM ticket_comments WHERE ticket_id = $1 AND deleted_at IS NULL`,
		ticketID,
	).Scan(&count)
	return count, err
}

func (t *pgxTicketTx) InsertComment(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, user_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return t.tx.QueryRow(ctx, query, comment.TicketID, comment.AuthorID, comment.Body).
		Scan(&comment.ID, &comment.CreatedAt)
}

func (t *pgxTicketTx) AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_histories (ticket_id, status_id, user_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return t.tx.QueryRow(ctx, query, entry.TicketID, entry.StatusID, entry.ActorID).
		Scan(&entry.ID, &entry.CreatedAt)
}
