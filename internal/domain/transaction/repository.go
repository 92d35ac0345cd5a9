package transaction

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/domain/account"
	"fintrack/internal/domain/category"
)

// Store is the ledger's persistence boundary. Reads run outside a DB
// transaction; every mutation goes through WithinTx.
type Store interface {
	// ListByUserID returns the user's transactions matching f, newest date
	// first, then newest createdAt.
	ListByUserID(ctx context.Context, userID int64, f Filter) ([]*Transaction, error)
	// GetByID returns ErrTransactionNotFound when the id does not resolve
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// WithinTx runs fn in a single DB transaction. A non-nil error from fn
	// rolls back every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes a ledger mutation may perform atomically.
type Tx interface {
	// LockAccount reads the account with a row lock held until commit.
	// Returns account.ErrAccountNotFound when absent.
	LockAccount(ctx context.Context, id string) (*account.Account, error)
	SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// GetCategory returns category.ErrCategoryNotFound when absent.
	GetCategory(ctx context.Context, id string) (*category.Category, error)

	// GetForUpdate reads the transaction with a row lock.
	// Returns ErrTransactionNotFound when absent.
	GetForUpdate(ctx context.Context, id string) (*Transaction, error)
	Insert(ctx context.Context, t *Transaction) error
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id string) error

	// ClaimOccurrence moves the template's nextDate from o.Date to o.Next,
	// holding the template row lock until commit. Returns
	// ErrOccurrenceClaimed when nextDate is no longer o.Date or the
	// template is gone.
	ClaimOccurrence(ctx context.Context, o Occurrence) error
}
