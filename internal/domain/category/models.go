package category

import (
	"strings"
	"time"

	"fintrack/internal/shared/apperr"
)

// Type is the direction of money a category groups.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// ParseType accepts any case and returns ErrInvalidCategoryType otherwise.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidCategoryType
	}
	return t, nil
}

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

const (
	MaxNameLength  = 128
	MaxIconLength  = 64
	MaxColorLength = 12
)

var (
	ErrCategoryNotFound    = apperr.NotFound("category not found")
	ErrForbidden           = apperr.Forbidden("category does not belong to user")
	ErrInvalidCategoryType = apperr.Validation("category type must be INCOME or EXPENSE")
	ErrNameRequired        = apperr.Validation("name is required")
)

type Category struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Category) OwnedBy(userID int64) bool {
	return c.UserID == userID
}

type CreateParams struct {
	ID     string
	UserID int64
	Name   string
	Type   Type
	Icon   string
	Color  string
}

func (p *CreateParams) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrNameRequired
	}
	if !p.Type.Valid() {
		return ErrInvalidCategoryType
	}
	return validateAttrs(p.Name, p.Icon, p.Color)
}

// UpdateParams carries the mutable attributes. Type cannot change.
type UpdateParams struct {
	Name  string
	Icon  string
	Color string
}

func (p *UpdateParams) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrNameRequired
	}
	return validateAttrs(p.Name, p.Icon, p.Color)
}

func validateAttrs(name, icon, color string) error {
	if len(name) > MaxNameLength {
		return apperr.Validationf("name must be %d characters or less", MaxNameLength)
	}
	if len(icon) > MaxIconLength {
		return apperr.Validationf("icon must be %d characters or less", MaxIconLength)
	}
	if len(color) > MaxColorLength {
		return apperr.Validationf("color must be %d characters or less", MaxColorLength)
	}
	return nil
}
