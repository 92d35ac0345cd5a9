package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/domain/recurring"
	"fintrack/internal/domain/transaction"
	"fintrack/internal/domain/user"
	"fintrack/internal/infrastructure/amqp"
	"fintrack/internal/infrastructure/postgres"
	"fintrack/internal/infrastructure/postgres/listener"
	"fintrack/internal/interfaces/scheduler"
	"fintrack/internal/shared/config"
	applog "fintrack/internal/shared/log"
	"fintrack/internal/shared/telemetry"
)

const (
	shutdownTimeout  = 30 * time.Second
	queueFullBackoff = 2 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := applog.New(applog.Config{Service: "fintrack-worker"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := applog.New(applog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "fintrack-worker",
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  "fintrack-worker",
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(sctx); err != nil {
				logger.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}()
		if err != nil {
			return err
		}
	}

	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{})
	if err != nil {
		return err
	}
	defer db.Close()

	users := user.NewService(postgres.NewUserRepository(db))
	ledger := transaction.NewService(postgres.NewTransactionStore(db), users, logger)
	materializer := recurring.NewMaterializer(postgres.NewRecurringRepository(db), ledger, logger)

	pool := scheduler.NewWorkerPool(scheduler.PoolConfig{
		Workers:   cfg.Scheduler.WorkerCount,
		JobDelay:  cfg.Scheduler.JobDelay,
		QueueSize: cfg.Scheduler.QueueSize,
	}, logger)
	pool.Start()
	defer pool.Shutdown(shutdownTimeout)

	submitter := scheduler.NewSubmitter(pool, materializer)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewScheduler(scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
		}, pool, scheduler.DueTemplatesProvider(materializer, time.Now, logger), logger)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		sched.Start()
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop(shutdownTimeout)
			return nil
		})
	} else {
		logger.Info().Msg("scheduler is disabled")
	}

	if cfg.AMQP.Enabled() {
		dial := func() (*amqp.Client, error) {
			return amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, logger)
		}
		handle := func(ctx context.Context, msg *amqp.MaterializeRequest) error {
			err := submitter.RequestMaterialization(ctx, msg.UserID, msg.AsOf)
			if errors.Is(err, scheduler.ErrQueueFull) {
				// hold the message briefly so the requeue does not spin
				select {
				case <-ctx.Done():
				case <-time.After(queueFullBackoff):
				}
			}
			return err
		}
		g.Go(func() error {
			return amqp.RunConsumer(gctx, dial, handle, logger)
		})
	}

	// A template created already due is picked up without waiting for the
	// next scheduled run.
	dueListener := listener.NewRecurringListener(cfg.Database.URL(),
		func(ctx context.Context, userID int64, asOf civil.Date) {
			if err := submitter.RequestMaterialization(ctx, userID, asOf); err != nil {
				logger.Warn().Err(err).Int64(applog.FieldUserID, userID).Msg("could not queue materialization")
			}
		}, logger)
	dueListener.Start(gctx)
	g.Go(func() error {
		<-gctx.Done()
		dueListener.Stop()
		return nil
	})

	logger.Info().Int("workers", cfg.Scheduler.WorkerCount).Bool("amqp", cfg.AMQP.Enabled()).Msg("recurring worker started")

	err = g.Wait()
	logger.Info().Msg("recurring worker shutting down")
	return err
}
