package user

import (
	"net/mail"
	"strings"
	"time"

	"fintrack/internal/shared/apperr"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt truncates beyond this
)

// Domain errors
var (
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrUsernameTaken      = apperr.Conflict("Username already taken")
	ErrEmailTaken         = apperr.Conflict("Email already in use")
	ErrInvalidCredentials = apperr.Validation("invalid username or password")
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterParams is the raw registration input.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Normalize trims whitespace and lower-cases the email.
func (p *RegisterParams) Normalize() {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

func (p RegisterParams) Validate() error {
	if n := len(p.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return apperr.Validationf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if strings.ContainsAny(p.Username, " \t\n") {
		return apperr.Validation("username must not contain whitespace")
	}
	if p.Email == "" {
		return apperr.Validation("email is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return apperr.Validation("email is invalid")
	}
	if n := len(p.Password); n < MinPasswordLength || n > MaxPasswordLength {
		return apperr.Validationf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// CreateParams is what the repository persists. The password is already hashed.
type CreateParams struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
