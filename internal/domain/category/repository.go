package category

import "context"

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Category, error)
	// GetByID returns ErrCategoryNotFound when the id does not resolve
	GetByID(ctx context.Context, id string) (*Category, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Category, error)
	ListByUserIDAndType(ctx context.Context, userID int64, t Type) ([]*Category, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Category, error)
	// Delete removes the category; transactions pointing at it lose the link.
	Delete(ctx context.Context, id string) error
}
