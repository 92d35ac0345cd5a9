package account

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/shared/apperr"
	"fintrack/internal/shared/money"
)

var (
	// Allowed account types
	accountTypes = map[string]struct{}{
		"CHECKING":    {},
		"SAVINGS":     {},
		"CREDIT_CARD": {},
		"CASH":        {},
		"INVESTMENT":  {},
		"OTHER":       {},
	}
	// Common ISO 4217 currency codes
	validCurrencies = map[string]struct{}{
		"BRL": {}, "USD": {}, "EUR": {}, "GBP": {}, "JPY": {},
		"CHF": {}, "CAD": {}, "AUD": {}, "NZD": {}, "CNY": {},
		"INR": {}, "MXN": {}, "ZAR": {}, "SEK": {}, "NOK": {},
		"DKK": {}, "PLN": {}, "TRY": {}, "RUB": {}, "KRW": {},
		"SGD": {}, "HKD": {}, "ARS": {}, "CLP": {}, "COP": {},
	}
)

const MaxNameLength = 100

// Domain errors
var (
	ErrAccountNotFound     = apperr.NotFound("account not found")
	ErrForbidden           = apperr.Forbidden("account does not belong to user")
	ErrAccountInUse        = apperr.Conflict("account has transactions and cannot be deleted")
	ErrInvalidAccountType  = apperr.Validation("invalid account type")
	ErrInvalidCurrency     = apperr.Validation("valid ISO 4217 currency is required")
	ErrAccountNameRequired = apperr.Validation("account name is required")
)

// Account is a user's financial account. Balance is the opening balance plus
// the signed effect of every transaction linked to it.
type Account struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// OwnedBy reports whether the account belongs to userID.
func (a *Account) OwnedBy(userID int64) bool {
	return a.UserID == userID
}

// Fields are the user-editable account attributes. Create and Update both
// take the full set; update overwrites every field.
type Fields struct {
	Name     string
	Type     string
	Balance  decimal.Decimal
	Currency string
}

// Normalize trims the name and upper-cases type and currency.
func (f *Fields) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
}

func (f Fields) Validate() error {
	if f.Name == "" {
		return ErrAccountNameRequired
	}
	if len(f.Name) > MaxNameLength {
		return apperr.Validationf("account name must be %d characters or less", MaxNameLength)
	}
	if !IsValidAccountType(f.Type) {
		return ErrInvalidAccountType
	}
	if !IsValidCurrency(f.Currency) {
		return ErrInvalidCurrency
	}
	return money.Check("balance", f.Balance)
}

// CreateParams contains parameters for creating a new account
type CreateParams struct {
	ID     string
	UserID int64
	Fields
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t string) bool {
	_, ok := accountTypes[t]
	return ok
}

// IsValidCurrency checks if the provided currency is a valid ISO 4217 code.
func IsValidCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	_, ok := validCurrencies[c]
	return ok
}
