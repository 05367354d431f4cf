package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slotwise/scheduling-api/internal/config"
	availabilityHandler "github.com/slotwise/scheduling-api/internal/handler/availability"
	bookingHandler "github.com/slotwise/scheduling-api/internal/handler/booking"
	calendarHandler "github.com/slotwise/scheduling-api/internal/handler/calendar"
	healthHandler "github.com/slotwise/scheduling-api/internal/handler/health"
	servicedefHandler "github.com/slotwise/scheduling-api/internal/handler/servicedef"
	"github.com/slotwise/scheduling-api/internal/middleware"
	"github.com/slotwise/scheduling-api/internal/repository/postgres"
	"github.com/slotwise/scheduling-api/internal/router"
	availabilityService "github.com/slotwise/scheduling-api/internal/service/availability"
	bookingService "github.com/slotwise/scheduling-api/internal/service/booking"
	calendarService "github.com/slotwise/scheduling-api/internal/service/calendar"
	catalogService "github.com/slotwise/scheduling-api/internal/service/catalog"
	eventService "github.com/slotwise/scheduling-api/internal/service/event"
	"github.com/slotwise/scheduling-api/pkg/logger"
	"github.com/slotwise/scheduling-api/pkg/messaging"
	redisbroker "github.com/slotwise/scheduling-api/pkg/messaging/redis"
	"github.com/slotwise/scheduling-api/pkg/metrics"
	"github.com/slotwise/scheduling-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	location, err := time.LoadLocation(cfg.Scheduling.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Scheduling.Timezone).Msg("invalid timezone")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("slotwise", "scheduling")

	// Repositories
	serviceRepo := postgres.NewServiceDefinitionRepository(db)
	ruleRepo := postgres.NewAvailabilityRuleRepository(db)
	bookingRepo := postgres.NewBookingRepository(db, m)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Domain events leave either directly through the broker or via the
	// outbox table relayed by cmd/worker.
	var publisher messaging.Publisher
	switch cfg.Events.Mode {
	case config.EventModeOutbox:
		publisher = eventService.NewOutboxPublisher(outboxRepo)
	default:
		publisher = eventService.NewBrokerPublisher(broker, m)
	}

	// Services
	catalogSvc := catalogService.NewService(serviceRepo)
	availabilitySvc := availabilityService.NewService(ruleRepo, bookingRepo, catalogSvc, publisher, location, appLogger, m)
	bookingSvc := bookingService.NewService(bookingRepo, catalogSvc, publisher, appLogger, m)
	calendarSvc := calendarService.NewService(ruleRepo, bookingRepo, catalogSvc, location)

	// Upstream service mirror
	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	defer stopMirror()
	mirror := catalogService.NewMirror(catalogSvc, broker, appLogger)
	go func() {
		if err := mirror.Run(mirrorCtx); err != nil && mirrorCtx.Err() == nil {
			appLogger.Error(err, "service mirror stopped")
		}
	}()

	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Enabled {
		authMiddleware = middleware.NewAuthMiddleware(cfg.Auth.Secret)
	}

	r := router.NewRouter(router.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		CORS:           middleware.DefaultCORSConfig(),
		MetricsPrefix:  "scheduling_api",
		Auth:           authMiddleware,
	})
	r.Setup(
		[]router.Handler{
			healthHandler.NewHandler(db),
		},
		[]router.Handler{
			bookingHandler.NewHandler(bookingSvc),
			availabilityHandler.NewHandler(availabilitySvc),
			calendarHandler.NewHandler(calendarSvc, location),
			servicedefHandler.NewHandler(catalogSvc),
		},
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopMirror()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
