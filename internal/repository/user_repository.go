package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository loads users with their role names resolved; the role name
// feeds the access scope resolver.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListActiveByRoleNames(ctx context.Context, roleNames []string) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `u.id, u.first_name, u.last_name, u.email, u.password_hash,
	u.role_id, COALESCE(r.name, ''), u.office_id, u.department_id, u.active, u.created_at, u.updated_at`

const userJoins = `users u LEFT JOIN roles r ON u.role_id = r.id`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + userJoins + ` WHERE u.id=$1 AND u.deleted_at IS NULL`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + userJoins + ` WHERE u.email=$1 AND u.deleted_at IS NULL`
	return r.fetchSingle(ctx, query, email)
}

// ListActiveByRoleNames returns the active users holding any of the given
// roles, ordered by first name; used to enumerate technicians for metrics.
func (r *userRepository) ListActiveByRoleNames(ctx context.Context, roleNames []string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + userJoins + `
        WHERE u.active AND u.deleted_at IS NULL AND LOWER(r.name) = ANY($1)
        ORDER BY u.first_name ASC`
	lowered := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		lowered = append(lowered, strings.ToLower(name))
	}
	rows, err := r.pool.Query(ctx, query, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row rowScanner, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.RoleID,
		&user.RoleName,
		&user.OfficeID,
		&user.DepartmentID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}
