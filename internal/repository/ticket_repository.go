package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// TicketListRow is a listing row joined with catalog display names.
type TicketListRow struct {
	Ticket         domain.Ticket
	StatusName     string
	CategoryName   *string
	CategoryActive bool
	DepartmentName *string
	OfficeName     *string
	SupportOffice  *string
	AssigneeName   *string
	CreatorName    *string
}

// TicketPage is one page of listing results. Limit echoes the effective page
// size after clamping. For latest-window queries Total is the window size,
// not the true match count.
type TicketPage struct {
	Rows  []TicketListRow
	Total uint64
	Limit uint64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetRowByID(ctx context.Context, id int64) (*TicketListRow, error)
	List(ctx context.Context, filter TicketFilter) (*TicketPage, error)
	ListLatestWindow(ctx context.Context, filter TicketFilter, window uint64) (*TicketPage, error)
	SoftDelete(ctx context.Context, id int64) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.subject, t.body, t.status_id, t.priority, t.category_service_id,
	t.department_id, t.office_id, t.office_support_to, t.assigned_user_id, t.user_id,
	t.created_at, t.updated_at, t.deleted_at`

const ticketJoinColumns = ticketColumns + `,
	s.name AS status_name,
	c.name AS category_name,
	d.name AS department_name,
	o.name AS office_name,
	so.name AS support_office_name,
	TRIM(CONCAT(a.first_name, ' ', a.last_name)) AS assignee_name,
	TRIM(CONCAT(u.first_name, ' ', u.last_name)) AS creator_name,
	COALESCE(c.active, FALSE) AS category_active`

const ticketJoins = `tickets t
	LEFT JOIN ticket_statuses s ON t.status_id = s.id
	LEFT JOIN category_services c ON t.category_service_id = c.id
	LEFT JOIN departments d ON t.department_id = d.id
	LEFT JOIN offices o ON t.office_id = o.id
	LEFT JOIN offices so ON t.office_support_to = so.id
	LEFT JOIN users a ON t.assigned_user_id = a.id
	LEFT JOIN users u ON t.user_id = u.id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, body, status_id, priority, category_service_id, department_id,
            office_id, office_support_to, assigned_user_id, user_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	var priority *string
	if ticket.Priority != nil {
		value := string(*ticket.Priority)
		priority = &value
	}
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Body,
		ticket.StatusID,
		priority,
		ticket.CategoryID,
		ticket.DepartmentID,
		ticket.OfficeID,
		ticket.OfficeSupportTo,
		ticket.AssigneeID,
		ticket.CreatorID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query, args, err := psql.
		Select(ticketColumns).
		From("tickets t").
		Where(sq.And{sq.Eq{"t.id": id}, sq.Eq{"t.deleted_at": nil}}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetRowByID(ctx context.Context, id int64) (*TicketListRow, error) {
	query, args, err := psql.
		Select(ticketJoinColumns).
		From(ticketJoins).
		Where(sq.And{sq.Eq{"t.id": id}, sq.Eq{"t.deleted_at": nil}}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var row TicketListRow
	if err := scanTicketRow(r.pool.QueryRow(ctx, query, args...), &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// List performs standard pagination: an exact count plus an offset/limit page.
func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) (*TicketPage, error) {
	where := filter.Predicate()

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("tickets t").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var total uint64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	query, args, err := psql.
		Select(ticketJoinColumns).
		From(ticketJoins).
		Where(where).
		OrderBy(filter.OrderClause()).
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listed, err := collectTicketRows(rows)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Rows: listed, Total: total, Limit: filter.Limit}, nil
}

// ListLatestWindow caps the candidate set to the most recent `window` matches
// before paginating within it. The reported total is the window size, which
// bounds scan cost on hot "recent activity" views.
func (r *ticketRepository) ListLatestWindow(ctx context.Context, filter TicketFilter, window uint64) (*TicketPage, error) {
	idQuery, idArgs, err := psql.
		Select("t.id").
		From("tickets t").
		Where(filter.Predicate()).
		OrderBy("t.created_at DESC").
		Limit(window).
		ToSql()
	if err != nil {
		return nil, err
	}
	idRows, err := r.pool.Query(ctx, idQuery, idArgs...)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, window)
	for idRows.Next() {
		var id int64
		if err := idRows.Scan(&id); err != nil {
			idRows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	idRows.Close()
	if err := idRows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &TicketPage{Rows: []TicketListRow{}, Total: 0, Limit: filter.Limit}, nil
	}

	query, args, err := psql.
		Select(ticketJoinColumns).
		From(ticketJoins).
		Where(sq.Eq{"t.id": ids}).
		OrderBy("t.created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listed, err := collectTicketRows(rows)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Rows: listed, Total: uint64(len(ids)), Limit: filter.Limit}, nil
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	var priority sql.NullString
	if err := row.Scan(
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
		return err
	}
	if priority.Valid {
		value := domain.TicketPriority(priority.String)
		ticket.Priority = &value
	}
	return nil
}

func scanTicketRow(row rowScanner, out *TicketListRow) error {
	var priority, statusName sql.NullString
	var categoryName, departmentName, officeName, supportOffice, assigneeName, creatorName sql.NullString
	if err := row.Scan(
		&out.Ticket.ID,
		&out.Ticket.Subject,
		&out.Ticket.Body,
		&out.Ticket.StatusID,
		&priority,
		&out.Ticket.CategoryID,
		&out.Ticket.DepartmentID,
		&out.Ticket.OfficeID,
		&out.Ticket.OfficeSupportTo,
		&out.Ticket.AssigneeID,
		&out.Ticket.CreatorID,
		&out.Ticket.CreatedAt,
		&out.Ticket.UpdatedAt,
		&out.Ticket.DeletedAt,
		&statusName,
		&categoryName,
		&departmentName,
		&officeName,
		&supportOffice,
		&assigneeName,
		&creatorName,
		&out.CategoryActive,
	); err != nil {
		return err
	}
	if priority.Valid {
		value := domain.TicketPriority(priority.String)
		out.Ticket.Priority = &value
	}
	out.StatusName = statusName.String
	out.CategoryName = nullableString(categoryName)
	out.DepartmentName = nullableString(departmentName)
	out.OfficeName = nullableString(officeName)
	out.SupportOffice = nullableString(supportOffice)
	out.AssigneeName = nullableString(assigneeName)
	out.CreatorName = nullableString(creatorName)
	return nil
}

func collectTicketRows(rows pgx.Rows) ([]TicketListRow, error) {
	result := make([]TicketListRow, 0)
	for rows.Next() {
		var row TicketListRow
		if err := scanTicketRow(rows, &row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func nullableString(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	value := v.String
	return &value
}
