package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	applog "fintrack/internal/shared/log"
)

const DefaultJobTimeout = 120 * time.Second

var (
	ErrQueueFull  = errors.New("job queue full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

var (
	jobTracer          = otel.Tracer("fintrack/scheduler")
	jobMeter           = otel.Meter("fintrack/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

type PoolConfig struct {
	Workers    int
	JobDelay   time.Duration // pause after each job, per worker
	QueueSize  int
	JobTimeout time.Duration
}

// WorkerPool runs jobs on a fixed number of goroutines fed by a bounded queue.
type WorkerPool struct {
	cfg    PoolConfig
	jobs   chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(cfg PoolConfig, logger zerolog.Logger) *WorkerPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: applog.Component(logger, applog.ComponentWorker),
	}
}

func (wp *WorkerPool) Start() {
	wp.logger.Info().Int("workers", wp.cfg.Workers).Int("queue_size", wp.cfg.QueueSize).Msg("starting worker pool")

	for i := 1; i <= wp.cfg.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger := wp.logger.With().Int(applog.FieldWorkerID, id).Logger()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case job, ok := <-wp.jobs:
			if !ok {
				logger.Debug().Msg("job channel closed")
				return
			}

			wp.processJob(logger, id, job)

			if wp.cfg.JobDelay > 0 {
				select {
				case <-time.After(wp.cfg.JobDelay):
				case <-wp.ctx.Done():
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) processJob(logger zerolog.Logger, workerID int, job Job) {
	logger = logger.With().
		Int64(applog.FieldUserID, job.UserID()).
		Str(applog.FieldJob, job.Description()).
		Logger()

	ctx, cancel := context.WithTimeout(wp.ctx, wp.cfg.JobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.Int64("job.user_id", job.UserID()),
		),
	)
	defer span.End()

	ctx = applog.WithContext(ctx, logger)
	start := time.Now()

	err := job.Execute(ctx)
	elapsed := time.Since(start)
	jobDuration.Record(ctx, elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		logger.Error().Err(err).Dur(applog.FieldDuration, elapsed).Msg("job failed")
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	logger.Info().Dur(applog.FieldDuration, elapsed).Msg("job completed")
}

// Submit queues a job without blocking. A full queue drops the job and
// returns ErrQueueFull.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		wp.logger.Warn().Int64(applog.FieldUserID, job.UserID()).Str(applog.FieldJob, job.Description()).Msg("job queue full, dropping job")
		return ErrQueueFull
	}
}

// SubmitBatch queues jobs and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			continue
		}
		submitted++
	}
	wp.logger.Info().Int("submitted", submitted).Int("total", len(jobs)).Msg("submitted jobs to worker pool")
	return submitted
}

// Shutdown stops accepting jobs and waits up to timeout for the queue to
// drain. Jobs still running after that have their context cancelled.
func (wp *WorkerPool) Shutdown(timeout time.Duration) {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.jobs)
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Info().Msg("worker pool drained")
	case <-time.After(timeout):
		wp.logger.Warn().Dur("timeout", timeout).Msg("worker pool shutdown timed out, cancelling jobs")
		wp.cancel()
		<-done
	}
	wp.cancel()
}
