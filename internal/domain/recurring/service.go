package recurring

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"fintrack/internal/domain/user"
)

type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type Service struct {
	repo  Repository
	users UserFinder
	now   func() time.Time
}

func NewService(repo Repository, users UserFinder) *Service {
	return &Service{repo: repo, users: users, now: time.Now}
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*Template, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUserID(ctx, userID)
}

func (s *Service) ListDueByUser(ctx context.Context, userID int64, asOf civil.Date) ([]*Template, error) {
	if asOf.IsZero() {
		return nil, ErrNextDateRequired
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListDueByUserID(ctx, userID, asOf)
}

func (s *Service) Get(ctx context.Context, id string, userID int64) (*Template, error) {
	if id == "" {
		return nil, ErrTemplateNotFound
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*Template, error) {
	if params.Frequency != "" {
		f, err := ParseFrequency(string(params.Frequency))
		if err != nil {
			return nil, err
		}
		params.Frequency = f
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	params.ID = uuid.NewString()
	params.UserID = userID
	params.CreatedAt = s.now().UTC()
	return s.repo.Create(ctx, params)
}

func (s *Service) Delete(ctx context.Context, id string, userID int64) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
