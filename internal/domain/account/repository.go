package account

import "context"

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Account, error)

	// GetByID returns ErrAccountNotFound when the id does not resolve
	GetByID(ctx context.Context, id string) (*Account, error)

	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)

	// Update overwrites every field, including balance
	Update(ctx context.Context, id string, fields Fields) (*Account, error)

	// Delete removes an account. Returns ErrAccountInUse when transactions
	// still reference it.
	Delete(ctx context.Context, id string) error

	HasTransactions(ctx context.Context, id string) (bool, error)
}
