package service

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// QueueMode selects which visibility slice of the ticket corpus a listing
// request operates on.
type QueueMode string

const (
	// QueueDefault applies the caller's baseline visibility.
	QueueDefault QueueMode = ""
	// QueueTriage shows tickets still missing a category or an assignee.
	// Elevated roles only.
	QueueTriage QueueMode = "triage"
	// QueueTechnician shows tickets assigned to the caller.
	QueueTechnician QueueMode = "technician"
	// QueueGeneral shows fully routed tickets (category and assignee set).
	QueueGeneral QueueMode = "general"
)

// RoleScope is the coarse visibility tier a role belongs to.
type RoleScope string

const (
	ScopeElevated RoleScope = "elevated"
	ScopeSupport  RoleScope = "support"
	ScopeGeneral  RoleScope = "general"
)

// ScopeConfig maps normalized role names to visibility tiers. Roles absent
// from the map fall back to ScopeGeneral.
type ScopeConfig map[string]RoleScope

// DefaultScopeConfig covers the role names the seed data ships with, in both
// their Spanish and English spellings.
func DefaultScopeConfig() ScopeConfig {
	return ScopeConfig{
		"administrador": ScopeElevated,
		"administrator": ScopeElevated,
		"admin":         ScopeElevated,
		"supervisor":    ScopeElevated,
		"soporte":       ScopeSupport,
		"support":       ScopeSupport,
		"tecnico":       ScopeSupport,
		"technician":    ScopeSupport,
	}
}

// ScopeResolver turns (actor, queue mode) into a SQL predicate restricting
// which tickets the listing queries may return.
type ScopeResolver struct {
	config  ScopeConfig
	catalog StatusLookup
}

func NewScopeResolver(config ScopeConfig, catalog StatusLookup) *ScopeResolver {
	if config == nil {
		config = DefaultScopeConfig()
	}
	return &ScopeResolver{config: config, catalog: catalog}
}

// RoleScope resolves the visibility tier for a role name.
func (r *ScopeResolver) RoleScope(role string) RoleScope {
	if scope, ok := r.config[strings.ToLower(strings.TrimSpace(role))]; ok {
		return scope
	}
	return ScopeGeneral
}

// SupportRoles lists the normalized role names in the support tier, for the
// metrics aggregator's technician roster.
func (r *ScopeResolver) SupportRoles() []string {
	var roles []string
	for name, scope := range r.config {
		if scope == ScopeSupport {
			roles = append(roles, name)
		}
	}
	return roles
}

// ElevatedRoles lists the normalized role names in the elevated tier, for
// route-level role gates.
func (r *ScopeResolver) ElevatedRoles() []string {
	var roles []string
	for name, scope := range r.config {
		if scope == ScopeElevated {
			roles = append(roles, name)
		}
	}
	return roles
}

// Resolve returns the visibility predicate for the actor in the requested
// queue mode, or nil when the actor may see everything. showClosed widens
// the technician queue to include terminal tickets.
func (r *ScopeResolver) Resolve(actor *domain.User, mode QueueMode, showClosed bool) (sq.Sqlizer, error) {
	scope := r.RoleScope(actor.RoleName)

	switch mode {
	case QueueTriage:
		if scope != ScopeElevated {
			return nil, apperrors.NewUnauthorized("triage queue requires an elevated role")
		}
		return sq.Or{
			sq.Eq{"t.category_service_id": nil},
			sq.Eq{"t.assigned_user_id": nil},
		}, nil

	case QueueTechnician:
		if scope == ScopeGeneral {
			return nil, apperrors.NewUnauthorized("technician queue requires a support role")
		}
		conj := sq.And{sq.Eq{"t.assigned_user_id": actor.ID}}
		if !showClosed {
			if terminal := r.catalog.IDsByClass(domain.TerminalClasses()...); len(terminal) > 0 {
				conj = append(conj, notIn("t.status_id", terminal))
			}
		}
		return conj, nil

	case QueueGeneral:
		return sq.And{
			sq.NotEq{"t.category_service_id": nil},
			sq.NotEq{"t.assigned_user_id": nil},
		}, nil

	case QueueDefault:
		if scope == ScopeElevated {
			return nil, nil
		}
		if scope == ScopeSupport {
			conj := sq.And{sq.Eq{"t.assigned_user_id": actor.ID}}
			if !showClosed {
				if terminal := r.catalog.IDsByClass(domain.TerminalClasses()...); len(terminal) > 0 {
					conj = append(conj, notIn("t.status_id", terminal))
				}
			}
			return conj, nil
		}
		return sq.And{
			sq.NotEq{"t.category_service_id": nil},
			sq.NotEq{"t.assigned_user_id": nil},
		}, nil
	}

	return nil, apperrors.NewValidationError("unknown queue mode", map[string]any{"mode": string(mode)})
}

// PoolPredicate restricts the unassigned pool: no assignee, an active
// category, and a non-terminal status.
func (r *ScopeResolver) PoolPredicate() sq.Sqlizer {
	conj := sq.And{
		sq.Eq{"t.assigned_user_id": nil},
		sq.Expr("t.category_service_id IN (SELECT id FROM category_services WHERE active)"),
	}
	if terminal := r.catalog.IDsByClass(domain.TerminalClasses()...); len(terminal) > 0 {
		conj = append(conj, notIn("t.status_id", terminal))
	}
	return conj
}

func notIn(column string, ids []int64) sq.Sqlizer {
	return sq.NotEq{column: ids}
}
