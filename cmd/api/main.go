package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"fintrack/internal/infrastructure/postgres"
	"fintrack/internal/shared/config"
	applog "fintrack/internal/shared/log"
	"fintrack/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := applog.New(applog.Config{Service: "fintrack-api"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := applog.New(applog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.Telemetry.ServiceName,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("application error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
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

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(cfg.Database.ConnectionString()); err != nil {
			return err
		}
		logger.Info().Msg("database migrations applied")
	}

	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	handler := SetupRoutes(deps, cfg, logger)
	srv, redirectSrv, serveErr := StartServers(NewServerConfigFromConfig(handler, cfg), logger)

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err = <-serveErr:
		logger.Error().Err(err).Msg("server stopped unexpectedly")
	}

	GracefulShutdown(srv, redirectSrv, shutdownTimeout, logger)
	return err
}
