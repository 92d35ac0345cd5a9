package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/shared/auth"
)

// Service contains the identity store logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a user after checking username and email uniqueness.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByUsername(ctx, params.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.repo.ExistsByEmail(ctx, params.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The unique constraints still guard against a concurrent registration
	return s.repo.Create(ctx, CreateParams{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, ErrUserNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, strings.TrimSpace(username))
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	return u, nil
}
