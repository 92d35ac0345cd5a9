package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain/account"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, name, account_type, balance, currency, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, params account.CreateParams) (*account.Account, error) {
	query := `
		INSERT INTO accounts (id, user_id, name, account_type, balance, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query,
		params.ID, params.UserID, params.Name, params.Type, params.Balance, params.Currency,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return getAccount(ctx, r.db, id, false)
}

// ListByUserID retrieves all accounts for a specific user
func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Update(ctx context.Context, id string, fields account.Fields) (*account.Account, error) {
	if !validID(id) {
		return nil, account.ErrAccountNotFound
	}
	query := `
		UPDATE accounts
		SET name = $1,
		    account_type = $2,
		    balance = $3,
		    currency = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query,
		fields.Name, fields.Type, fields.Balance, fields.Currency, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return acc, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return account.ErrAccountNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		// a transaction was linked after the HasTransactions check
		return account.ErrAccountInUse
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) HasTransactions(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE account_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account transactions: %w", err)
	}
	return exists, nil
}

func getAccount(ctx context.Context, q querier, id string, forUpdate bool) (*account.Account, error) {
	if !validID(id) {
		return nil, account.ErrAccountNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	acc, err := scanAccount(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func setAccountBalance(ctx context.Context, q querier, id string, balance decimal.Decimal) error {
	result, err := q.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		balance, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID, &acc.UserID, &acc.Name, &acc.Type, &acc.Balance, &acc.Currency,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
