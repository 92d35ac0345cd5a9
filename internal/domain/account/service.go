package account

import (
	"context"

	"github.com/google/uuid"

	"fintrack/internal/domain/user"
)

// UserFinder resolves users for the account store
type UserFinder interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// Service contains the business logic for account operations
type Service struct {
	repo  Repository
	users UserFinder
}

// NewService creates a new account service
func NewService(repo Repository, users UserFinder) *Service {
	return &Service{repo: repo, users: users}
}

// ListAccountsByUserID returns the user's accounts. Fails with
// user.ErrUserNotFound when the user does not exist.
func (s *Service) ListAccountsByUserID(ctx context.Context, userID int64) ([]*Account, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUserID(ctx, userID)
}

// CreateAccount creates an account. The supplied balance is the opening balance.
func (s *Service) CreateAccount(ctx context.Context, userID int64, fields Fields) (*Account, error) {
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	return s.repo.Create(ctx, CreateParams{
		ID:     uuid.NewString(),
		UserID: userID,
		Fields: fields,
	})
}

// GetAccount retrieves an account by ID and verifies user ownership
func (s *Service) GetAccount(ctx context.Context, accountID string, userID int64) (*Account, error) {
	if accountID == "" {
		return nil, ErrAccountNotFound
	}
	acc, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !acc.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return acc, nil
}

// UpdateAccount overwrites name, type, balance and currency.
func (s *Service) UpdateAccount(ctx context.Context, accountID string, userID int64, fields Fields) (*Account, error) {
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetAccount(ctx, accountID, userID); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, accountID, fields)
}

// DeleteAccount deletes an account after verifying ownership. Accounts that
// still have transactions are rejected with ErrAccountInUse.
func (s *Service) DeleteAccount(ctx context.Context, accountID string, userID int64) error {
	if _, err := s.GetAccount(ctx, accountID, userID); err != nil {
		return err
	}

	inUse, err := s.repo.HasTransactions(ctx, accountID)
	if err != nil {
		return err
	}
	if inUse {
		return ErrAccountInUse
	}

	return s.repo.Delete(ctx, accountID)
}
