package scheduler

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"fintrack/internal/domain/recurring"
	applog "fintrack/internal/shared/log"
)

// Materializer is the slice of recurring.Materializer the jobs need.
type Materializer interface {
	ProcessDue(ctx context.Context, userID int64, asOf civil.Date) (*recurring.Result, error)
	UsersWithDueTemplates(ctx context.Context, asOf civil.Date) ([]int64, error)
}

// MaterializeJob turns one user's due recurring templates into transactions.
type MaterializeJob struct {
	userID       int64
	asOf         civil.Date
	materializer Materializer
}

func NewMaterializeJob(userID int64, asOf civil.Date, m Materializer) *MaterializeJob {
	return &MaterializeJob{userID: userID, asOf: asOf, materializer: m}
}

// Execute fails when any template failed. The remaining templates are still
// processed.
func (j *MaterializeJob) Execute(ctx context.Context) error {
	logger := applog.FromContext(ctx)

	result, err := j.materializer.ProcessDue(ctx, j.userID, j.asOf)
	if err != nil {
		return fmt.Errorf("materialization failed: %w", err)
	}

	event := logger.Info()
	if len(result.Errors) > 0 {
		event = logger.Warn().Strs("failures", result.Errors)
	}
	event.
		Str(applog.FieldAsOf, j.asOf.String()).
		Int("templates", result.Templates).
		Int(applog.FieldCreated, result.Created).
		Int(applog.FieldCompleted, result.Completed).
		Int(applog.FieldErrorsCount, len(result.Errors)).
		Msg("materialization finished")

	if len(result.Errors) > 0 {
		return fmt.Errorf("materialization completed with %d errors", len(result.Errors))
	}
	return nil
}

func (j *MaterializeJob) UserID() int64 {
	return j.userID
}

func (j *MaterializeJob) Description() string {
	return fmt.Sprintf("materialize recurring templates as of %s", j.asOf)
}

// DueTemplatesProvider builds one MaterializeJob per user with templates due
// as of the current local date.
func DueTemplatesProvider(m Materializer, now func() time.Time, logger zerolog.Logger) JobProvider {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) ([]Job, error) {
		asOf := civil.DateOf(now())
		userIDs, err := m.UsersWithDueTemplates(ctx, asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to list users with due templates: %w", err)
		}

		jobs := make([]Job, 0, len(userIDs))
		for _, id := range userIDs {
			jobs = append(jobs, NewMaterializeJob(id, asOf, m))
		}
		logger.Info().Str(applog.FieldAsOf, asOf.String()).Int("users", len(jobs)).Msg("found users with due templates")
		return jobs, nil
	}
}

// Submitter adapts the pool to the materialization request entry points
// (AMQP consumer, database notifications).
type Submitter struct {
	pool         *WorkerPool
	materializer Materializer
}

func NewSubmitter(pool *WorkerPool, m Materializer) *Submitter {
	return &Submitter{pool: pool, materializer: m}
}

// RequestMaterialization queues a job. A full queue is reported so callers
// can retry, e.g. by requeueing the message.
func (s *Submitter) RequestMaterialization(_ context.Context, userID int64, asOf civil.Date) error {
	return s.pool.Submit(NewMaterializeJob(userID, asOf, s.materializer))
}
