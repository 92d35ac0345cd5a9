package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/shared/apperr"
	"fintrack/internal/shared/auth"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	CreateFunc           func(ctx context.Context, params CreateParams) (*User, error)
	GetByIDFunc          func(ctx context.Context, id int64) (*User, error)
	GetByUsernameFunc    func(ctx context.Context, username string) (*User, error)
	ExistsByUsernameFunc func(ctx context.Context, username string) (bool, error)
	ExistsByEmailFunc    func(ctx context.Context, email string) (bool, error)
}

func (m *MockRepository) Create(ctx context.Context, params CreateParams) (*User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &User{ID: 1, Username: params.Username, Email: params.Email, PasswordHash: params.PasswordHash, CreatedAt: params.CreatedAt}, nil
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *MockRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, ErrUserNotFound
}

func (m *MockRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.ExistsByUsernameFunc != nil {
		return m.ExistsByUsernameFunc(ctx, username)
	}
	return false, nil
}

func (m *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	return false, nil
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	valid := RegisterParams{Username: "alice", Email: "Alice@Example.com ", Password: "password123"}

	tests := []struct {
		name      string
		params    RegisterParams
		mock      func() *MockRepository
		wantErr   error
		wantEmail string
	}{
		{
			name:      "Success",
			params:    valid,
			mock:      func() *MockRepository { return &MockRepository{} },
			wantEmail: "alice@example.com",
		},
		{
			name:   "Username taken",
			params: valid,
			mock: func() *MockRepository {
				return &MockRepository{
					ExistsByUsernameFunc: func(ctx context.Context, username string) (bool, error) { return true, nil },
					CreateFunc: func(ctx context.Context, params CreateParams) (*User, error) {
						t.Error("Create should not be called when username is taken")
						return nil, nil
					},
				}
			},
			wantErr: ErrUsernameTaken,
		},
		{
			name:   "Email taken",
			params: valid,
			mock: func() *MockRepository {
				return &MockRepository{
					ExistsByEmailFunc: func(ctx context.Context, email string) (bool, error) { return email == "alice@example.com", nil },
				}
			},
			wantErr: ErrEmailTaken,
		},
		{
			name:   "Unique violation race surfaces as conflict",
			params: valid,
			mock: func() *MockRepository {
				return &MockRepository{
					CreateFunc: func(ctx context.Context, params CreateParams) (*User, error) { return nil, ErrUsernameTaken },
				}
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name:    "Short username",
			params:  RegisterParams{Username: "al", Email: "a@example.com", Password: "password123"},
			mock:    func() *MockRepository { return &MockRepository{} },
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "Invalid email",
			params:  RegisterParams{Username: "alice", Email: "not-an-email", Password: "password123"},
			mock:    func() *MockRepository { return &MockRepository{} },
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "Short password",
			params:  RegisterParams{Username: "alice", Email: "a@example.com", Password: "short"},
			mock:    func() *MockRepository { return &MockRepository{} },
			wantErr: apperr.ErrValidation,
		},
		{
			name:   "Repository error",
			params: valid,
			mock: func() *MockRepository {
				return &MockRepository{
					ExistsByUsernameFunc: func(ctx context.Context, username string) (bool, error) { return false, errors.New("db down") },
				}
			},
			wantErr: errors.New("any"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.mock())
			fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			svc.now = func() time.Time { return fixed }

			u, err := svc.Register(ctx, tt.params)

			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Register() expected error, got user %+v", u)
				}
				if kind := apperr.KindOf(tt.wantErr); kind != 0 && !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register() unexpected error: %v", err)
			}
			if u.Email != tt.wantEmail {
				t.Errorf("Email = %q, want %q", u.Email, tt.wantEmail)
			}
			if !u.CreatedAt.Equal(fixed) {
				t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, fixed)
			}
			if u.PasswordHash == "" || u.PasswordHash == tt.params.Password {
				t.Error("password was not hashed")
			}
			if err := auth.VerifyPassword(u.PasswordHash, tt.params.Password); err != nil {
				t.Errorf("stored hash does not verify: %v", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	hash, _ := auth.HashPassword("password123")
	repo := &MockRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*User, error) {
			if username == "alice" {
				return &User{ID: 7, Username: "alice", PasswordHash: hash}, nil
			}
			return nil, ErrUserNotFound
		},
	}
	svc := NewService(repo)

	u, err := svc.Authenticate(ctx, " alice ", "password123")
	if err != nil {
		t.Fatalf("Authenticate() unexpected error: %v", err)
	}
	if u.ID != 7 {
		t.Errorf("ID = %d, want 7", u.ID)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "bob", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&MockRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*User, error) {
			return &User{ID: id, Username: "alice"}, nil
		},
	})

	if _, err := svc.GetByID(ctx, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID(0) error = %v, want not found", err)
	}
	u, err := svc.GetByID(ctx, 3)
	if err != nil || u.ID != 3 {
		t.Errorf("GetByID(3) = %+v, %v", u, err)
	}
}
