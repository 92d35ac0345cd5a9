package category

import (
	"context"

	"github.com/google/uuid"

	"fintrack/internal/domain/user"
)

type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type Service struct {
	repo  Repository
	users UserFinder
}

func NewService(repo Repository, users UserFinder) *Service {
	return &Service{repo: repo, users: users}
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*Category, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUserID(ctx, userID)
}

// ListByUserAndType filters by INCOME or EXPENSE (case-insensitive).
func (s *Service) ListByUserAndType(ctx context.Context, userID int64, rawType string) ([]*Category, error) {
	t, err := ParseType(rawType)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUserIDAndType(ctx, userID, t)
}

// Get returns ErrForbidden when the category belongs to someone else.
func (s *Service) Get(ctx context.Context, categoryID string, userID int64) (*Category, error) {
	if categoryID == "" {
		return nil, ErrCategoryNotFound
	}
	c, err := s.repo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*Category, error) {
	if params.Type != "" {
		t, err := ParseType(string(params.Type))
		if err != nil {
			return nil, err
		}
		params.Type = t
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	params.ID = uuid.NewString()
	params.UserID = userID
	return s.repo.Create(ctx, params)
}

func (s *Service) Update(ctx context.Context, categoryID string, userID int64, params UpdateParams) (*Category, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, categoryID, userID); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, categoryID, params)
}

func (s *Service) Delete(ctx context.Context, categoryID string, userID int64) error {
	if _, err := s.Get(ctx, categoryID, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, categoryID)
}
