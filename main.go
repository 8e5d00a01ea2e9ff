package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/accessible-exam-service/internal/catalog"
	"github.com/SAP-F-2025/accessible-exam-service/internal/config"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/handlers"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories/redisstore"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/telegram"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
	"github.com/SAP-F-2025/accessible-exam-service/internal/validator"
	"github.com/SAP-F-2025/accessible-exam-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis, using in-memory mirror: %v", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := redisstore.NewRepositoryManager(redisstore.RepositoryConfig{
		RedisClient: redisClient,
		SnapshotTTL: cfg.SnapshotTTL,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Question catalog
	loader := catalog.NewLoader(cfg.Catalog.QuestionsFile, slogLogger)
	if _, err := loader.Load(); err != nil {
		log.Fatalf("Failed to load question catalog: %v", err)
	}
	if cfg.Catalog.Watch {
		if err := loader.Watch(); err != nil {
			log.Fatalf("Failed to watch question catalog: %v", err)
		}
		loader.OnChange(func(questions []models.Question) {
			logger.Info("New sessions will use the reloaded catalog", "count", len(questions))
		})
	}
	defer loader.Close()

	// Event bus with optional Kafka audit trail
	busConfig := events.BusConfig{AuditTopic: cfg.Kafka.Topic}
	if len(cfg.Kafka.Brokers) > 0 {
		audit, err := events.NewKafkaAuditPublisher(cfg.Kafka.Brokers, slogLogger)
		if err != nil {
			log.Printf("Warning: Failed to initialize Kafka audit publisher: %v", err)
		} else {
			busConfig.Audit = audit
		}
	}
	bus := events.NewBus(busConfig, slogLogger)

	// Voice transcription
	var transcriber transcription.Transcriber = transcription.Unavailable{}
	if cfg.Transcription.APIKey != "" {
		gemini, err := transcription.NewGeminiTranscriber(context.Background(), cfg.Transcription.APIKey, cfg.Transcription.Model, slogLogger)
		if err != nil {
			log.Printf("Warning: Voice input disabled: %v", err)
		} else {
			defer gemini.Close()
			transcriber = gemini
		}
	} else {
		logger.Warn("No transcription API key configured, voice input is unavailable")
	}

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.ServiceDependencies{
		Repositories: repoManager,
		Questions:    loader,
		Bus:          bus,
		Transcriber:  transcriber,
		Scheduler:    scheduler.New(),
	}, slogLogger, services.ServiceManagerConfig{
		Session: services.SessionConfig{
			ExamDurationSeconds: cfg.Exam.DurationSeconds,
			ExtraTimeMultiplier: cfg.Exam.ExtraTimeMultiplier,
			AutoSubmitOnExpiry:  cfg.Exam.AutoSubmitOnExpiry,
		},
		TranscriptionTimeout: cfg.Transcription.Timeout,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Telegram front-end (if configured)
	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.New(cfg.TelegramToken, serviceManager, slogLogger)
		if err != nil {
			log.Printf("Warning: Failed to start Telegram bot: %v", err)
		} else {
			go bot.Start()
		}
	}

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if bot != nil {
		bot.Stop(ctx)
	}

	// Services go first: closing the sessions ends open event streams,
	// which the HTTP server would otherwise wait on
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
