package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/opsmesh/watchtower-backend/config"
	"github.com/opsmesh/watchtower-backend/db"
	"github.com/opsmesh/watchtower-backend/handlers"
	"github.com/opsmesh/watchtower-backend/logger"
	"github.com/opsmesh/watchtower-backend/router"
	"github.com/opsmesh/watchtower-backend/services"
	"github.com/opsmesh/watchtower-backend/store/postgres"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() {
		_ = logger.Close()
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL())
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	if cfg.IsProduction() {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Redis
	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: cfg.Redis.Address,
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() {
		_ = redisClient.Close()
	}()

	// Stores and services
	errorStore := postgres.NewPgErrorStore(pool)
	healthStore := postgres.NewPgHealthStore(pool)

	publishTimeout := time.Duration(cfg.Tracker.PublishTimeoutSeconds) * time.Second
	eventService := services.NewRedisEventService(redisClient, publishTimeout)
	recoveryService := services.NewRecoveryService(errorStore)
	tracker := services.NewErrorTracker(errorStore, eventService, recoveryService)
	monitor := services.NewHealthMonitor(healthStore, errorStore, tracker)
	rateLimitService := services.NewRateLimitService(redisClient)
	probeService := services.NewProbeService(pool, redisClient, cfg.Server.Version)

	// Background processing
	consumer := services.NewEventConsumer(redisClient, monitor, recoveryService, errorStore)
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start event consumer: %v", err)
	}

	reportInterval := time.Duration(cfg.Tracker.ReportIntervalMinutes) * time.Minute
	scheduler := services.NewReportScheduler(monitor, reportInterval)
	scheduler.Start(ctx)

	// HTTP surface
	deps := router.Dependencies{
		Config:        cfg,
		Tracker:       tracker,
		RateLimiter:   rateLimitService,
		ErrorHandler:  handlers.NewErrorHandler(tracker),
		HealthHandler: handlers.NewHealthHandler(probeService, monitor),
		Logger:        log,
	}
	engine := router.SetupRouter(deps)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Println("Forced shutdown:", err)
	}
}
