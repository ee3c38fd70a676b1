package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository aggregates per-technician workload figures from ticket
// state and the history ledger. Status-id sets come from the classification
// cache; this layer never hard-codes catalog identifiers.
type StatsRepository interface {
	CountAssignedByStatus(ctx context.Context, technicianID int64, statusIDs []int64, from, to time.Time) (int64, error)
	AvgResolutionMinutes(ctx context.Context, technicianID int64, assignedStatusIDs, closedStatusIDs []int64, from, to time.Time) (*float64, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository builds repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) CountAssignedByStatus(ctx context.Context, technicianID int64, statusIDs []int64, from, to time.Time) (int64, error) {
	if len(statusIDs) == 0 {
		return 0, nil
	}
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE assigned_user_id = $1 AND status_id = ANY($2)
          AND created_at BETWEEN $3 AND $4 AND deleted_at IS NULL`
	var count int64
	err := r.pool.QueryRow(ctx, query, technicianID, statusIDs, from, to).Scan(&count)
	return count, err
}

// AvgResolutionMinutes averages the elapsed minutes between the first
// assigned-classified ledger entry and the first closed-classified one, over
// tickets created in the window. Tickets lacking either marker are excluded
// from the average rather than counted as zero.
func (r *statsRepository) AvgResolutionMinutes(ctx context.Context, technicianID int64, assignedStatusIDs, closedStatusIDs []int64, from, to time.Time) (*float64, error) {
	if len(assignedStatusIDs) == 0 || len(closedStatusIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT AVG(EXTRACT(EPOCH FROM (closed.first_at - assigned.first_at)) / 60)
        FROM tickets t
        JOIN LATERAL (
            SELECT MIN(created_at) AS first_at FROM ticket_histories
            WHERE ticket_id = t.id AND status_id = ANY($2)
        ) assigned ON TRUE
        JOIN LATERAL (
            SELECT MIN(created_at) AS first_at FROM ticket_histories
            WHERE ticket_id = t.id AND status_id = ANY($3)
        ) closed ON TRUE
        WHERE t.assigned_user_id = $1
          AND t.created_at BETWEEN $4 AND $5
          AND t.deleted_at IS NULL
          AND assigned.first_at IS NOT NULL
          AND closed.first_at IS NOT NULL`
	var avg *float64
	if err := r.pool.QueryRow(ctx, query, technicianID, assignedStatusIDs, closedStatusIDs, from, to).Scan(&avg); err != nil {
		return nil, err
	}
	return avg, nil
}
