package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/hospital-ops/internal/api"
	"github.com/careops/hospital-ops/internal/audit"
	"github.com/careops/hospital-ops/internal/billing"
	"github.com/careops/hospital-ops/internal/booking"
	"github.com/careops/hospital-ops/internal/config"
	"github.com/careops/hospital-ops/internal/db"
	"github.com/careops/hospital-ops/internal/notify"
	"github.com/careops/hospital-ops/internal/pharmacy"
)

const version = "0.1.0"

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migrateCtx, pgPool)
	cancelMigrate()
	if err != nil {
		logger.Fatal().Err(err).Msg("schema migration error")
	}

	var publisher notify.Publisher = notify.Noop{}

	rdb, rdbErr := notify.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if rdbErr != nil {
		logger.Warn().Err(rdbErr).Msg("redis unavailable, notifications disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		if cfg.NotifyEnabled {
			publisher = notify.NewRedisPublisher(rdb, logger)
		}
		logger.Info().Msg("connected to Redis")
	}

	recorder := audit.NewAsyncRecorder(audit.NewPgStore(pgPool), cfg.AuditQueueSize, logger)
	defer recorder.Close()

	bookingSvc := booking.NewService(booking.NewPgRepository(pgPool), publisher, logger)
	pharmacySvc := pharmacy.NewService(pharmacy.NewPgRepository(pgPool), recorder, publisher, logger)
	billingSvc := billing.NewService(billing.NewPgRepository(pgPool), publisher, logger)

	router := api.NewRouter(api.RouterConfig{
		Booking:        bookingSvc,
		Pharmacy:       pharmacySvc,
		Billing:        billingSvc,
		Recorder:       recorder,
		PgPool:         pgPool,
		Redis:          rdb,
		Logger:         logger,
		Env:            cfg.Env,
		Version:        version,
		AuditBodyLimit: cfg.AuditBodyLimit,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
}
