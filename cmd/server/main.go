package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"booking/internal/app"
	"booking/internal/config"
	"booking/internal/events"
	"booking/internal/handler"
	"booking/internal/jobs"
	"booking/internal/ledger"
	"booking/internal/logger"
	internalRedis "booking/internal/redis"
	"booking/internal/repository/postgres"
	"booking/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	zlog, err := logger.New(cfg.ServiceName, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			zlog.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			zlog.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("connected to PostgreSQL", zap.Bool("migrations", cfg.Database.RunMigrations))

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	zlog.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	publisher, closePublisher := app.NewEventPublisher(cfg.Kafka, zlog)
	defer func() {
		if err := closePublisher(); err != nil {
			zlog.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	// Wire dependencies.
	server, invitationService := wireServer(db, redisClient, publisher, nrApp, cfg, zlog)

	scheduler := jobs.NewScheduler(zlog)
	if cfg.Jobs.InvitationSweepEnabled {
		if err := scheduler.AddInvitationSweep(cfg.Jobs.InvitationSweepSchedule, invitationService); err != nil {
			zlog.Fatal("invalid invitation sweep schedule",
				zap.String("schedule", cfg.Jobs.InvitationSweepSchedule),
				zap.Error(err),
			)
		}
	}
	scheduler.Start()

	// Start server in goroutine.
	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	scheduler.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	zlog.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// invitation service the scheduler sweeps with.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	publisher events.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	zlog *zap.Logger,
) (*http.Server, *service.InvitationService) {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	ledgerStore := internalRedis.NewLedgerStore(redisClient)

	// Initialize repositories.
	orderRepo := postgres.NewOrderRepository(db)
	userRepo := postgres.NewUserRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	transactor := postgres.NewTransactor(db)

	// Initialize services.
	billing := service.NewBillingResolver(orderRepo, userRepo)
	orderService := service.NewOrderService(orderRepo, billing, cacheStore, publisher, zlog)
	invitationService := service.NewInvitationService(invitationRepo, userRepo, transactor, zlog)
	memberService := service.NewMemberService(userRepo, transactor, zlog)
	bookingLedger := ledger.New(ledgerStore, lockStore, zlog)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:      handler.NewOrderHandler(orderService, billing),
		InvitationHandler: handler.NewInvitationHandler(invitationService),
		MemberHandler:     handler.NewMemberHandler(memberService),
		UserHandler:       handler.NewUserHandler(memberService),
		LedgerHandler:     handler.NewLedgerHandler(bookingLedger, orderService),
		ResponseCache:     cacheStore,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		NewRelicApp:       nrApp,
		Logger:            zlog,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, invitationService
}
