package transaction

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/shared/apperr"
	"fintrack/internal/shared/money"
)

// Type is the direction of a ledger entry.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// ParseType accepts any case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

const MaxDescriptionLength = 255

var (
	ErrTransactionNotFound = apperr.NotFound("transaction not found")
	ErrForbidden           = apperr.Forbidden("transaction does not belong to user")
	ErrInvalidType         = apperr.Validation("transaction type must be INCOME or EXPENSE")
	ErrInvalidAmount       = apperr.Validation("amount must be greater than zero")
	ErrDateRequired        = apperr.Validation("date is required")
	ErrAccountRequired     = apperr.Validation("accountId is required")
	ErrInvalidDateRange    = apperr.Validation("from must not be after to")
	ErrBalanceOutOfRange   = apperr.Validation("resulting account balance is out of range")
	ErrOccurrenceClaimed   = apperr.Conflict("recurring occurrence was already recorded")
)

// Effect is the signed change a transaction applies to its account balance:
// +amount for INCOME, -amount for EXPENSE.
func Effect(t Type, amount decimal.Decimal) decimal.Decimal {
	if t == TypeExpense {
		return amount.Neg()
	}
	return amount
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"userId"`
	AccountID   string          `json:"accountId"`
	CategoryID  *string         `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Type        Type            `json:"type"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (t *Transaction) Effect() decimal.Decimal {
	return Effect(t.Type, t.Amount)
}

func (t *Transaction) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

// Params is the caller-supplied content of a transaction, used by both
// create and update. On update a nil CategoryID keeps the existing link.
type Params struct {
	AccountID   string
	CategoryID  *string
	Amount      decimal.Decimal
	Date        civil.Date
	Description string
	Type        Type

	// Occurrence is set by the recurring materializer and ignored on update.
	Occurrence *Occurrence
}

// Occurrence names the recurring template slot a created transaction fills.
// Create moves the template's nextDate from Date to Next in the same DB
// transaction as the insert, so each slot is recorded at most once.
type Occurrence struct {
	TemplateID string
	Date       civil.Date
	Next       civil.Date
}

func (p *Params) Validate() error {
	p.AccountID = strings.TrimSpace(p.AccountID)
	p.Description = strings.TrimSpace(p.Description)
	if p.CategoryID != nil && strings.TrimSpace(*p.CategoryID) == "" {
		p.CategoryID = nil
	}

	if p.AccountID == "" {
		return ErrAccountRequired
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := money.Check("amount", p.Amount); err != nil {
		return err
	}
	if p.Date.IsZero() {
		return ErrDateRequired
	}
	if !p.Date.IsValid() {
		return apperr.Validation("date is invalid")
	}
	if !p.Type.Valid() {
		return ErrInvalidType
	}
	if len(p.Description) > MaxDescriptionLength {
		return apperr.Validationf("description must be %d characters or less", MaxDescriptionLength)
	}
	return nil
}

// Filter narrows a ledger listing. Zero values mean "no constraint";
// From and To are inclusive.
type Filter struct {
	Type       Type
	From       civil.Date
	To         civil.Date
	AccountID  string
	CategoryID string
}

func (f Filter) Validate() error {
	if f.Type != "" && !f.Type.Valid() {
		return ErrInvalidType
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return ErrInvalidDateRange
	}
	return nil
}
