package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/finbox/payhook/config"
	"github.com/finbox/payhook/internal/domain"
	kafkaevents "github.com/finbox/payhook/internal/events/kafka"
	"github.com/finbox/payhook/internal/gateway"
	apihandler "github.com/finbox/payhook/internal/handler/api"
	"github.com/finbox/payhook/internal/repository/postgres"
	redisrepo "github.com/finbox/payhook/internal/repository/redis"
	"github.com/finbox/payhook/internal/usecase"
	"github.com/finbox/payhook/internal/worker"
	"github.com/finbox/payhook/pkg/logger"
	"github.com/finbox/payhook/pkg/observability"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.Environment)
	defer logger.Close()

	// Print configuration in development mode
	if cfg.App.IsDevelopment() {
		cfg.Print()
	}

	// Initialize database connection
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetMaxOpenConns(cfg.Database.MaxOpen)
	db.SetConnMaxLifetime(cfg.Database.MaxLife)
	defer db.Close()

	// Initialize Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// Test Redis connection
	_, err = rdb.Ping(context.Background()).Result()
	if err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer rdb.Close()

	logger.Info("Database and Redis connections established")

	// Initialize repositories
	transactionRepo := postgres.NewTransactionRepository(db)
	queueRepo := redisrepo.NewQueueRepository(rdb)

	// Initialize event publisher when brokers are configured
	var publisher domain.EventPublisher
	if cfg.Kafka.PublishingEnabled() {
		kafkaPublisher := kafkaevents.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("Kafka event publishing enabled",
			logger.String("topic", cfg.Kafka.Topic),
		)
	}

	// Initialize the simulated payment gateway
	paymentGateway := gateway.NewSimulated(gateway.SimulatedConfig{
		Latency: cfg.Gateway.Latency,
	})

	// Initialize use cases
	intakeUC := usecase.NewIntakeUsecase(transactionRepo, queueRepo)
	processUC := usecase.NewProcessUsecase(transactionRepo, paymentGateway, publisher)
	queryUC := usecase.NewQueryUsecase(transactionRepo)

	// Initialize handlers
	webhookHandler := apihandler.NewWebhookHandler(intakeUC)
	transactionHandler := apihandler.NewTransactionHandler(queryUC)

	// Start the background worker pool
	transactionWorker := worker.NewTransactionWorker(queueRepo, processUC, worker.TransactionWorkerConfig{
		PoolSize:        cfg.Worker.PoolSize,
		PollingInterval: cfg.Worker.PollingInterval,
	})
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		transactionWorker.Start(workerCtx)
		close(workerDone)
	}()

	// Set Gin mode
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize metrics handler with dependency probes
	metricsHandler := observability.NewMetricsHandler()
	metricsHandler.RegisterPinger("postgres", func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	metricsHandler.RegisterPinger("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(observability.ObservabilityMiddleware())
	router.Use(gin.Recovery())

	// Setup metrics and probe endpoints
	router.GET("/metrics", metricsHandler.MetricsEndpoint())
	router.GET("/ready", metricsHandler.ReadinessEndpoint())
	router.GET("/live", metricsHandler.LivenessEndpoint())

	// Setup API routes
	apihandler.SetupRoutes(router, webhookHandler, transactionHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			logger.String("port", cfg.App.Port),
			logger.String("environment", cfg.App.Environment),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	// Drain the worker pool before closing connections
	workerCancel()
	select {
	case <-workerDone:
	case <-ctx.Done():
		logger.Error("Worker pool did not drain before deadline")
	}

	logger.Info("Server exited")
}
