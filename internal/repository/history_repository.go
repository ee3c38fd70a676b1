package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// HistoryRepository reads the append-only status ledger. Writes happen only
// through TicketTx so they share the ticket transaction.
type HistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, status_id, user_id, created_at
        FROM ticket_histories WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.StatusID,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
