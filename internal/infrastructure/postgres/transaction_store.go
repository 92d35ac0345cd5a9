package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
	"fintrack/internal/domain/transaction"
)

// TransactionStore implements transaction.Store. Mutations run through
// WithinTx and lock account rows with SELECT ... FOR UPDATE.
type TransactionStore struct {
	db *DB
}

func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionColumns = `id, user_id, account_id, category_id, amount, tx_date, description, tx_type, created_at, updated_at`

func (s *TransactionStore) ListByUserID(ctx context.Context, userID int64, f transaction.Filter) ([]*transaction.Transaction, error) {
	if (f.AccountID != "" && !validID(f.AccountID)) || (f.CategoryID != "" && !validID(f.CategoryID)) {
		return nil, nil
	}
	query, args := buildListQuery(userID, f)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// buildListQuery appends one predicate per non-zero filter field.
func buildListQuery(userID int64, f transaction.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`)
	args := []any{userID}

	add := func(pred string, arg any) {
		args = append(args, arg)
		b.WriteString(` AND ` + pred + ` $` + strconv.Itoa(len(args)))
	}

	if f.Type != "" {
		add(`tx_type =`, string(f.Type))
	}
	if !f.From.IsZero() {
		add(`tx_date >=`, dateArg(f.From))
	}
	if !f.To.IsZero() {
		add(`tx_date <=`, dateArg(f.To))
	}
	if f.AccountID != "" {
		add(`account_id =`, f.AccountID)
	}
	if f.CategoryID != "" {
		add(`category_id =`, f.CategoryID)
	}

	b.WriteString(` ORDER BY tx_date DESC, created_at DESC`)
	return b.String(), args
}

func (s *TransactionStore) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	return getTransaction(ctx, s.db, id, false)
}

func (s *TransactionStore) WithinTx(ctx context.Context, fn func(tx transaction.Tx) error) error {
	return s.db.WithTx(ctx, func(tx *Tx) error {
		return fn(&ledgerTx{q: tx})
	})
}

// ledgerTx implements transaction.Tx on top of a *Tx.
type ledgerTx struct {
	q querier
}

func (t *ledgerTx) LockAccount(ctx context.Context, id string) (*account.Account, error) {
	return getAccount(ctx, t.q, id, true)
}

func (t *ledgerTx) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	return setAccountBalance(ctx, t.q, id, balance)
}

func (t *ledgerTx) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	return getCategory(ctx, t.q, id)
}

func (t *ledgerTx) GetForUpdate(ctx context.Context, id string) (*transaction.Transaction, error) {
	return getTransaction(ctx, t.q, id, true)
}

func (t *ledgerTx) Insert(ctx context.Context, tr *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, account_id, category_id, amount, tx_date, description, tx_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.q.ExecContext(ctx, query,
		tr.ID, tr.UserID, tr.AccountID, nullStringPtr(tr.CategoryID), tr.Amount,
		dateArg(tr.Date), tr.Description, string(tr.Type), tr.CreatedAt, tr.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return translateTransactionFK(err)
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) Update(ctx context.Context, tr *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $1,
		    category_id = $2,
		    amount = $3,
		    tx_date = $4,
		    description = $5,
		    tx_type = $6,
		    updated_at = $7
		WHERE id = $8
	`
	result, err := t.q.ExecContext(ctx, query,
		tr.AccountID, nullStringPtr(tr.CategoryID), tr.Amount, dateArg(tr.Date),
		tr.Description, string(tr.Type), tr.UpdatedAt, tr.ID,
	)
	if isForeignKeyViolation(err) {
		return translateTransactionFK(err)
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return transaction.ErrTransactionNotFound
	}
	return nil
}

func (t *ledgerTx) Delete(ctx context.Context, id string) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

// ClaimOccurrence only matches the expected nextDate. A concurrent claim
// blocks on the row lock and then matches nothing once the first commits.
func (t *ledgerTx) ClaimOccurrence(ctx context.Context, o transaction.Occurrence) error {
	if !validID(o.TemplateID) {
		return transaction.ErrOccurrenceClaimed
	}
	if !o.Next.After(o.Date) {
		return fmt.Errorf("next date must advance: %s -> %s", o.Date, o.Next)
	}

	result, err := t.q.ExecContext(ctx, `
		UPDATE recurring_templates
		SET next_date = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND next_date = $3
	`, dateArg(o.Next), o.TemplateID, dateArg(o.Date))
	if err != nil {
		return fmt.Errorf("failed to claim recurring occurrence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return transaction.ErrOccurrenceClaimed
	}
	return nil
}

// translateTransactionFK maps a racing delete of the referenced row.
func translateTransactionFK(err error) error {
	if strings.Contains(constraintName(err), "category") {
		return category.ErrCategoryNotFound
	}
	return account.ErrAccountNotFound
}

func getTransaction(ctx context.Context, q querier, id string, forUpdate bool) (*transaction.Transaction, error) {
	if !validID(id) {
		return nil, transaction.ErrTransactionNotFound
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	t, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var (
		t          transaction.Transaction
		categoryID sql.NullString
		date       time.Time
		txType     string
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.AccountID, &categoryID, &t.Amount, &date,
		&t.Description, &txType, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.CategoryID = fromNullString(categoryID)
	t.Date = toDate(date)
	t.Type = transaction.Type(txType)
	return &t, nil
}
