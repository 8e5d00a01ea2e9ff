package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/catalog"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Session              SessionConfig
	TranscriptionTimeout time.Duration
}

// ServiceDependencies are the collaborators built in main. Bus and
// Transcriber may be nil.
type ServiceDependencies struct {
	Repositories repositories.RepositoryManager
	Questions    catalog.Source
	Bus          *events.Bus
	Transcriber  transcription.Transcriber
	Scheduler    scheduler.Scheduler
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	deps   ServiceDependencies
	logger *slog.Logger
	config ServiceManagerConfig

	// Service instances
	sessionService     SessionService
	voiceService       VoiceService
	answerSheetService AnswerSheetService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps ServiceDependencies, logger *slog.Logger, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps,
		logger: logger,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps ServiceDependencies, logger *slog.Logger) ServiceManager {
	config := ServiceManagerConfig{
		Session:              DefaultSessionConfig(),
		TranscriptionTimeout: DefaultTranscriptionTimeout,
	}
	return NewServiceManager(deps, logger, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	if sm.deps.Repositories == nil || sm.deps.Repositories.GetRepository() == nil {
		return fmt.Errorf("repository manager not initialized")
	}
	if sm.deps.Transcriber == nil {
		sm.deps.Transcriber = transcription.Unavailable{}
	}

	var publisher events.EventPublisher
	if sm.deps.Bus != nil {
		publisher = sm.deps.Bus
	}

	sm.sessionService = NewSessionService(SessionServiceDeps{
		Questions:      sm.deps.Questions,
		Mirror:         sm.deps.Repositories.GetRepository().Snapshot(),
		Publisher:      publisher,
		Scheduler:      sm.deps.Scheduler,
		Config:         sm.config.Session,
		VoiceAvailable: sm.deps.Transcriber.Available(),
		Logger:         sm.logger,
	})
	sm.logger.Info("Session service initialized",
		"exam_duration_seconds", sm.config.Session.ExamDurationSeconds,
		"auto_submit", sm.config.Session.AutoSubmitOnExpiry)

	sm.voiceService = NewVoiceService(sm.sessionService, sm.deps.Transcriber, sm.config.TranscriptionTimeout, sm.logger)
	sm.logger.Info("Voice service initialized", "available", sm.deps.Transcriber.Available())

	sm.answerSheetService = NewAnswerSheetService(sm.sessionService, sm.logger)
	sm.logger.Info("Answer sheet service initialized")

	return nil
}

// Service getters
func (sm *serviceManager) Sessions() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Voice() VoiceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.voiceService
}

func (sm *serviceManager) AnswerSheet() AnswerSheetService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.answerSheetService
}

// Events returns the subscriber for live session views, or nil when the
// service runs without a bus.
func (sm *serviceManager) Events() events.EventSubscriber {
	if sm.deps.Bus == nil {
		return nil
	}
	return sm.deps.Bus
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repositories.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sessionService != nil {
		sm.sessionService.CloseAll(ctx)
	}

	if sm.deps.Bus != nil {
		if err := sm.deps.Bus.Close(); err != nil {
			sm.logger.Error("Failed to close event bus", "error", err)
		}
	}

	if sm.deps.Repositories != nil {
		if err := sm.deps.Repositories.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// Validate checks the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.Session.ExamDurationSeconds <= 0 {
		errors = append(errors, "exam duration must be positive")
	}
	if config.Session.ExtraTimeMultiplier < 1 {
		errors = append(errors, "extra time multiplier must be at least 1")
	}
	if config.TranscriptionTimeout < 0 {
		errors = append(errors, "transcription timeout cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
