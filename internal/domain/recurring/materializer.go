package recurring

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"fintrack/internal/domain/transaction"
	applog "fintrack/internal/shared/log"
)

// MaxOccurrencesPerRun caps how many transactions a single template may
// produce in one run, so a long-idle daily template cannot stall a worker.
const MaxOccurrencesPerRun = 366

// Ledger is the subset of the transaction service the materializer needs.
type Ledger interface {
	Create(ctx context.Context, userID int64, p transaction.Params) (*transaction.Transaction, error)
}

// Result summarizes one ProcessDue run.
type Result struct {
	UserID    int64
	AsOf      civil.Date
	Templates int
	Created   int
	Completed int
	Errors    []string
}

// Materializer turns due templates into ledger transactions.
//
// Each occurrence is inserted and the template's nextDate advanced in one
// ledger transaction. When two runs reach the same template the second
// loses the claim and leaves the template to the first.
type Materializer struct {
	repo   Repository
	ledger Ledger
	logger zerolog.Logger
}

func NewMaterializer(repo Repository, ledger Ledger, logger zerolog.Logger) *Materializer {
	return &Materializer{
		repo:   repo,
		ledger: ledger,
		logger: applog.Component(logger, applog.ComponentRecurring),
	}
}

// ProcessDue materializes every occurrence up to asOf for the user's due
// templates. Failures are recorded per template and do not stop the rest.
func (m *Materializer) ProcessDue(ctx context.Context, userID int64, asOf civil.Date) (*Result, error) {
	templates, err := m.repo.ListDueByUserID(ctx, userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}

	result := &Result{UserID: userID, AsOf: asOf}
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if tpl.Completed() {
			continue
		}
		result.Templates++

		created, completed, err := m.materialize(ctx, tpl, asOf)
		result.Created += created
		if completed {
			result.Completed++
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("template %s: %v", tpl.ID, err))
			m.logger.Error().Err(err).
				Int64(applog.FieldUserID, userID).
				Str(applog.FieldTemplateID, tpl.ID).
				Int(applog.FieldCreated, created).
				Msg("materialization failed")
		}
	}

	m.logger.Info().
		Int64(applog.FieldUserID, userID).
		Str(applog.FieldAsOf, asOf.String()).
		Int(applog.FieldCreated, result.Created).
		Int(applog.FieldCompleted, result.Completed).
		Int(applog.FieldErrorsCount, len(result.Errors)).
		Msg("recurring templates processed")
	return result, nil
}

func (m *Materializer) materialize(ctx context.Context, tpl *Template, asOf civil.Date) (created int, completed bool, err error) {
	payload, err := DecodePayload(tpl.TransactionTemplate)
	if err != nil {
		return 0, false, err
	}

	d := tpl.NextDate
	for created < MaxOccurrencesPerRun && !d.After(asOf) && !pastEnd(tpl, d) {
		if err := ctx.Err(); err != nil {
			return created, false, err
		}
		next := tpl.Frequency.Next(d)
		params := payload.Params(d)
		params.Occurrence = &transaction.Occurrence{TemplateID: tpl.ID, Date: d, Next: next}

		_, err := m.ledger.Create(ctx, tpl.UserID, params)
		if errors.Is(err, transaction.ErrOccurrenceClaimed) {
			m.logger.Debug().
				Int64(applog.FieldUserID, tpl.UserID).
				Str(applog.FieldTemplateID, tpl.ID).
				Str(applog.FieldOccurrence, d.String()).
				Msg("occurrence claimed by another run")
			return created, false, nil
		}
		if err != nil {
			return created, false, fmt.Errorf("failed to create occurrence %s: %w", d, err)
		}
		d = next
		created++
	}
	return created, pastEnd(tpl, d), nil
}

func pastEnd(tpl *Template, d civil.Date) bool {
	return tpl.EndDate != nil && d.After(*tpl.EndDate)
}

// RequestMaterialization runs ProcessDue inline and reports only failure to
// start. Per-template errors are logged.
func (m *Materializer) RequestMaterialization(ctx context.Context, userID int64, asOf civil.Date) error {
	_, err := m.ProcessDue(ctx, userID, asOf)
	return err
}

// UsersWithDueTemplates lists the users the scheduler should process.
func (m *Materializer) UsersWithDueTemplates(ctx context.Context, asOf civil.Date) ([]int64, error) {
	ids, err := m.repo.ListUserIDsWithDue(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with due templates: %w", err)
	}
	return ids, nil
}
