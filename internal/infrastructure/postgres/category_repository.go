package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/domain/category"
)

type CategoryRepository struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, user_id, name, category_type, icon, color, created_at, updated_at`

func (r *CategoryRepository) Create(ctx context.Context, params category.CreateParams) (*category.Category, error) {
	query := `
		INSERT INTO categories (id, user_id, name, category_type, icon, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRowContext(ctx, query,
		params.ID, params.UserID, params.Name, params.Type, params.Icon, params.Color,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	return getCategory(ctx, r.db, id)
}

func (r *CategoryRepository) ListByUserID(ctx context.Context, userID int64) ([]*category.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 ORDER BY category_type ASC, name ASC`
	return r.list(ctx, query, userID)
}

func (r *CategoryRepository) ListByUserIDAndType(ctx context.Context, userID int64, t category.Type) ([]*category.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 AND category_type = $2 ORDER BY name ASC`
	return r.list(ctx, query, userID, t)
}

func (r *CategoryRepository) list(ctx context.Context, query string, args ...any) ([]*category.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*category.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id string, params category.UpdateParams) (*category.Category, error) {
	if !validID(id) {
		return nil, category.ErrCategoryNotFound
	}
	query := `
		UPDATE categories
		SET name = $1,
		    icon = $2,
		    color = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, params.Name, params.Icon, params.Color, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

// Delete removes the category. The transactions FK is ON DELETE SET NULL.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return category.ErrCategoryNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return category.ErrCategoryNotFound
	}
	return nil
}

func getCategory(ctx context.Context, q querier, id string) (*category.Category, error) {
	if !validID(id) {
		return nil, category.ErrCategoryNotFound
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func scanCategory(row rowScanner) (*category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
