package recurring

import (
	"encoding/json"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/domain/transaction"
	"fintrack/internal/shared/apperr"
	"fintrack/internal/shared/money"
)

// Frequency is the cadence of a recurring template.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Next returns the occurrence after d. Month and year steps clamp to the
// last day of the target month, so Jan 31 is followed by Feb 28 (or 29) and
// Feb 29 by Feb 28 of the next year.
func (f Frequency) Next(d civil.Date) civil.Date {
	switch f {
	case Daily:
		return d.AddDays(1)
	case Weekly:
		return d.AddDays(7)
	case Monthly:
		year, month := d.Year, d.Month+1
		if month > time.December {
			year, month = year+1, time.January
		}
		return clampDay(year, month, d.Day)
	case Yearly:
		return clampDay(d.Year+1, d.Month, d.Day)
	}
	return d
}

func clampDay(year int, month time.Month, day int) civil.Date {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var (
	ErrTemplateNotFound = apperr.NotFound("recurring template not found")
	ErrForbidden        = apperr.Forbidden("recurring template does not belong to user")
	ErrInvalidFrequency = apperr.Validation("frequency must be one of DAILY, WEEKLY, MONTHLY, YEARLY")
	ErrNextDateRequired = apperr.Validation("nextDate is required")
	ErrEndBeforeNext    = apperr.Validation("endDate must not be before nextDate")
	ErrTemplateRequired = apperr.Validation("transactionTemplate is required")
)

// Template is a stored recurring transaction. TransactionTemplate is kept
// verbatim; by convention it holds a JSON Payload.
type Template struct {
	ID                  string      `json:"id"`
	UserID              int64       `json:"userId"`
	TransactionTemplate string      `json:"transactionTemplate"`
	Frequency           Frequency   `json:"frequency"`
	NextDate            civil.Date  `json:"nextDate"`
	EndDate             *civil.Date `json:"endDate"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

func (t *Template) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

// Completed reports whether the template has no occurrences left.
func (t *Template) Completed() bool {
	return t.EndDate != nil && t.NextDate.After(*t.EndDate)
}

type CreateParams struct {
	ID                  string
	UserID              int64
	TransactionTemplate string
	Frequency           Frequency
	NextDate            civil.Date
	EndDate             *civil.Date
	CreatedAt           time.Time
}

func (p *CreateParams) Validate() error {
	if strings.TrimSpace(p.TransactionTemplate) == "" {
		return ErrTemplateRequired
	}
	if !p.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if p.NextDate.IsZero() {
		return ErrNextDateRequired
	}
	if !p.NextDate.IsValid() || (p.EndDate != nil && !p.EndDate.IsValid()) {
		return apperr.Validation("date is invalid")
	}
	if p.EndDate != nil && p.EndDate.Before(p.NextDate) {
		return ErrEndBeforeNext
	}
	if _, err := DecodePayload(p.TransactionTemplate); err != nil {
		return err
	}
	return nil
}

// Payload is the transaction a template materializes into. The date comes
// from the occurrence.
type Payload struct {
	AccountID   string          `json:"accountId"`
	CategoryID  *string         `json:"categoryId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
}

// DecodePayload parses and checks a stored transaction template.
func DecodePayload(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, apperr.Validation("transactionTemplate is not a valid transaction payload")
	}
	if strings.TrimSpace(p.AccountID) == "" {
		return Payload{}, apperr.Validation("transactionTemplate.accountId is required")
	}
	if !p.Amount.IsPositive() {
		return Payload{}, apperr.Validation("transactionTemplate.amount must be greater than zero")
	}
	if err := money.Check("transactionTemplate.amount", p.Amount); err != nil {
		return Payload{}, err
	}
	if _, err := transaction.ParseType(p.Type); err != nil {
		return Payload{}, apperr.Validation("transactionTemplate.type must be INCOME or EXPENSE")
	}
	return p, nil
}

// Params builds ledger input for the occurrence on date.
func (p Payload) Params(date civil.Date) transaction.Params {
	t, _ := transaction.ParseType(p.Type)
	return transaction.Params{
		AccountID:   p.AccountID,
		CategoryID:  p.CategoryID,
		Amount:      p.Amount,
		Date:        date,
		Description: p.Description,
		Type:        t,
	}
}
