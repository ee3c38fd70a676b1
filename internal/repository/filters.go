package repository

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. Scope carries the predicate
// produced by the access scope resolver and is AND'ed with the explicit
// filters.
type TicketFilter struct {
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
	Scope             sq.Sqlizer
	SortBy            string
	SortDesc          bool
	Limit             uint64
	Offset            uint64
	Latest            bool
}

// sortColumns is the allow-list protecting ORDER BY from unvalidated input.
var sortColumns = map[string]string{
	"created_at": "t.created_at",
	"updated_at": "t.updated_at",
	"id":         "t.id",
	"status_id":  "t.status_id",
	"priority":   "t.priority",
}

// OrderClause resolves the requested sort against the allow-list, falling
// back to creation time descending.
func (f TicketFilter) OrderClause() string {
	column, ok := sortColumns[strings.ToLower(f.SortBy)]
	if !ok {
		return "t.created_at DESC"
	}
	if f.SortDesc {
		return column + " DESC"
	}
	return column + " ASC"
}

var ticketCodePattern = regexp.MustCompile(`(?i)^tkt-?(\d+)$`)

// Predicate builds the WHERE clause for the filter over the aliased tickets
// table `t`. Soft-deleted rows are always excluded.
func (f TicketFilter) Predicate() sq.Sqlizer {
	conj := sq.And{sq.Eq{"t.deleted_at": nil}}

	if f.StatusID != nil {
		conj = append(conj, sq.Eq{"t.status_id": *f.StatusID})
	}
	if f.Priority != nil {
		conj = append(conj, sq.Eq{"t.priority": string(*f.Priority)})
	}
	if f.CategoryID != nil {
		conj = append(conj, sq.Eq{"t.category_service_id": *f.CategoryID})
	}
	if f.OfficeID != nil {
		conj = append(conj, sq.Eq{"t.office_id": *f.OfficeID})
	}
	if f.OfficeSupportToID != nil {
		conj = append(conj, sq.Eq{"t.office_support_to": *f.OfficeSupportToID})
	}
	if f.DepartmentID != nil {
		conj = append(conj, sq.Eq{"t.department_id": *f.DepartmentID})
	}
	if f.AssigneeID != nil {
		conj = append(conj, sq.Eq{"t.assigned_user_id": *f.AssigneeID})
	}
	if f.CreatedFrom != nil {
		conj = append(conj, sq.GtOrEq{"t.created_at": *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		conj = append(conj, sq.LtOrEq{"t.created_at": *f.CreatedTo})
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		conj = append(conj, searchPredicate(search))
	}
	if f.Scope != nil {
		conj = append(conj, f.Scope)
	}
	return conj
}

// searchPredicate matches subject/body substrings, and when the term looks
// like a ticket id ("7", "tkt-7", "TKT-007") also the exact id.
func searchPredicate(term string) sq.Sqlizer {
	like := "%" + term + "%"
	or := sq.Or{
		sq.ILike{"t.subject": like},
		sq.ILike{"t.body": like},
	}
	if id, ok := parseTicketID(term); ok {
		or = append(or, sq.Eq{"t.id": id})
	}
	return or
}

func parseTicketID(term string) (int64, bool) {
	if m := ticketCodePattern.FindStringSubmatch(term); m != nil {
		term = m[1]
	}
	id, err := strconv.ParseInt(term, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
