package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/landsales/salesops/internal/app"
	"github.com/landsales/salesops/internal/clock"
	"github.com/landsales/salesops/internal/config"
	"github.com/landsales/salesops/internal/events"
	"github.com/landsales/salesops/internal/lock"
	"github.com/landsales/salesops/internal/logging"
	"github.com/landsales/salesops/internal/storage/postgres"
	transporthttp "github.com/landsales/salesops/internal/transport/http"
	"github.com/landsales/salesops/migrations"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
)

const appName = "salesops-api"

func main() {
	cfg, envPath, err := config.Load()
	logger := logging.New(appName, cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if envPath != "" {
		logger.Infof("loaded env from %s", envPath)
	} else {
		logger.Warn(".env not found in current or parent directories")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.WithError(err).Fatal("load timezone")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.WithError(err).Fatal("db ping")
	}
	if err := migrations.Apply(startupCtx, pool, logger); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	var locker app.Locker = app.LocalLocker{}
	if cfg.RedisAddr != "" {
		client, err := lock.Connect(startupCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, periodic sweep runs with a local lock")
		} else {
			defer func() { _ = client.Close() }()
			locker = lock.NewRedisLocker(client, logger)
			logger.Infof("sweep lock on redis %s", cfg.RedisAddr)
		}
	}

	var publisher app.EventPublisher = app.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, lifecycle events are dropped")
		} else {
			defer func() { _ = pub.Close() }()
			publisher = pub
			logger.Infof("publishing lifecycle events to exchange %s", cfg.AMQPExchange)
		}
	}

	clk := clock.NewSystem()
	unitRepo := postgres.NewUnitRepository(pool)
	holdRepo := postgres.NewHoldRepository(pool)
	depositRepo := postgres.NewDepositRepository(pool)

	registry := app.NewRegistry(unitRepo, clk)
	holdManager := app.NewHoldManager(holdRepo, registry, clk,
		app.WithReservationWindow(cfg.ReservationWindow),
		app.WithBookingGrace(cfg.BookingGracePeriod),
	)
	sweeper := app.NewSweeper(holdRepo, holdManager, logger, clk,
		app.WithSweepLocker(locker),
		app.WithSweepPublisher(publisher),
	)
	workflow := app.NewWorkflow(app.WorkflowDeps{
		Registry:  registry,
		Holds:     holdManager,
		HoldRepo:  holdRepo,
		Deposits:  depositRepo,
		Sweeper:   sweeper,
		Publisher: publisher,
		Logger:    logger,
		Clock:     clk,
	})
	adminSvc := app.NewAdminService(postgres.NewAdminRepository(pool), clk)

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := sweeper.Schedule(scheduler, cfg.SweepSchedule); err != nil {
		logger.WithError(err).Fatal("schedule expiry sweep")
	}
	scheduler.Start()

	router := transporthttp.NewHandler(workflow, adminSvc, logger, loc).Routes()
	co := cors.New(cors.Options{
		AllowedOrigins: cfg.Origins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Actor-ID", "X-Actor-Role"},
	})
	handler := transporthttp.RequestLogger(co.Handler(router), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server shutdown error")
	}

	// Wait for an in-flight sweep before the pool closes.
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("expiry sweep still running at shutdown")
	}
	logger.Info("server stopped")
}
