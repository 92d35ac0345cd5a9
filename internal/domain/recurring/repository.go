package recurring

import (
	"context"

	"cloud.google.com/go/civil"
)

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Template, error)
	// GetByID returns ErrTemplateNotFound when the id does not resolve
	GetByID(ctx context.Context, id string) (*Template, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Template, error)
	// ListDueByUserID returns templates with nextDate <= asOf
	ListDueByUserID(ctx context.Context, userID int64, asOf civil.Date) ([]*Template, error)
	// ListUserIDsWithDue returns users owning at least one due, not completed template
	ListUserIDsWithDue(ctx context.Context, asOf civil.Date) ([]int64, error)
	Delete(ctx context.Context, id string) error
}
