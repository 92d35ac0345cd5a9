package scheduler

import "context"

// Job is a unit of work run by the WorkerPool.
type Job interface {
	// Execute must honour ctx cancellation; the pool bounds each run with a timeout.
	Execute(ctx context.Context) error

	// UserID is the user whose data the job touches, for logs and spans.
	UserID() int64

	Description() string
}

// JobProvider lists the jobs for one scheduled run.
type JobProvider func(ctx context.Context) ([]Job, error)
