package user

import "context"

// Repository defines the interface for user data access
type Repository interface {
	// Create persists a user. Returns ErrUsernameTaken or ErrEmailTaken on a
	// unique violation.
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
