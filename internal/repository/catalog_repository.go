package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StatusRepository lists the data-driven status catalog.
type StatusRepository interface {
	List(ctx context.Context) ([]domain.Status, error)
}

// CategoryRepository looks up service categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.CategoryService, error)
	List(ctx context.Context) ([]domain.CategoryService, error)
}

type statusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository builds repository.
func NewStatusRepository(pool *pgxpool.Pool) StatusRepository {
	return &statusRepository{pool: pool}
}

func (r *statusRepository) List(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM ticket_statuses ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(&status.ID, &status.Name); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*domain.CategoryService, error) {
	var category domain.CategoryService
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, active, created_at, updated_at FROM category_services WHERE id=$1`, id,
	).Scan(&category.ID, &category.Name, &category.Active, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.CategoryService, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, active, created_at, updated_at FROM category_services ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CategoryService
	for rows.Next() {
		var category domain.CategoryService
		if err := rows.Scan(&category.ID, &category.Name, &category.Active, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
