package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"fintrack/internal/domain/recurring"
)

type RecurringRepository struct {
	db *DB
}

func NewRecurringRepository(db *DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

const recurringColumns = `id, user_id, transaction_template, frequency, next_date, end_date, created_at, updated_at`

func (r *RecurringRepository) Create(ctx context.Context, params recurring.CreateParams) (*recurring.Template, error) {
	query := `
		INSERT INTO recurring_templates (id, user_id, transaction_template, frequency, next_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + recurringColumns

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query,
		params.ID, params.UserID, params.TransactionTemplate, string(params.Frequency),
		dateArg(params.NextDate), nullDateArg(params.EndDate), params.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring template: %w", err)
	}
	return t, nil
}

func (r *RecurringRepository) GetByID(ctx context.Context, id string) (*recurring.Template, error) {
	if !validID(id) {
		return nil, recurring.ErrTemplateNotFound
	}
	query := `SELECT ` + recurringColumns + ` FROM recurring_templates WHERE id = $1`

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recurring.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}
	return t, nil
}

func (r *RecurringRepository) ListByUserID(ctx context.Context, userID int64) ([]*recurring.Template, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_templates WHERE user_id = $1 ORDER BY next_date ASC, created_at ASC`
	return r.list(ctx, query, userID)
}

func (r *RecurringRepository) ListDueByUserID(ctx context.Context, userID int64, asOf civil.Date) ([]*recurring.Template, error) {
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_templates
		WHERE user_id = $1 AND next_date <= $2
		ORDER BY next_date ASC, created_at ASC
	`
	return r.list(ctx, query, userID, dateArg(asOf))
}

func (r *RecurringRepository) ListUserIDsWithDue(ctx context.Context, asOf civil.Date) ([]int64, error) {
	query := `
		SELECT DISTINCT user_id
		FROM recurring_templates
		WHERE next_date <= $1
		  AND (end_date IS NULL OR next_date <= end_date)
		ORDER BY user_id
	`
	rows, err := r.db.QueryContext(ctx, query, dateArg(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to list users with due templates: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}
	return ids, nil
}

func (r *RecurringRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return recurring.ErrTemplateNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return recurring.ErrTemplateNotFound
	}
	return nil
}

func (r *RecurringRepository) list(ctx context.Context, query string, args ...any) ([]*recurring.Template, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring templates: %w", err)
	}
	defer rows.Close()

	var templates []*recurring.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring templates: %w", err)
	}
	return templates, nil
}

func scanTemplate(row rowScanner) (*recurring.Template, error) {
	var (
		t         recurring.Template
		frequency string
		nextDate  time.Time
		endDate   sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.TransactionTemplate, &frequency, &nextDate, &endDate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Frequency = recurring.Frequency(frequency)
	t.NextDate = toDate(nextDate)
	t.EndDate = toNullDate(endDate)
	return &t, nil
}
