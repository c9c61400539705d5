package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/events"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Service-specific configurations
	Test     ServiceConfig
	Question ServiceConfig
	Attempt  ServiceConfig
	Scoring  ServiceConfig

	// Global settings
	DefaultTimeout time.Duration
}

type ServiceConfig struct {
	Enabled      bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db             *gorm.DB
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	config         ServiceManagerConfig

	// Service instances
	testService         TestService
	questionService     QuestionService
	attemptService      AttemptService
	scoringService      ScoringService
	rankingService      RankingService
	performanceService  PerformanceService
	importExportService ImportExportService
	notificationService NotificationEventService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:             db,
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, eventPublisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Test: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Question: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     10 * time.Minute,
		},
		Attempt: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     1 * time.Minute,
		},
		Scoring: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
		},

		DefaultTimeout: 30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, eventPublisher, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// initializeServices wires the services in dependency order: notification
// and ranking first, scoring on top of them, attempt on top of scoring.
func (sm *serviceManager) initializeServices(ctx context.Context) error {
	sm.notificationService = NewNotificationEventService(sm.repo, sm.eventPublisher, sm.logger, sm.validator)
	sm.logger.Info("Notification event service initialized")

	sm.rankingService = NewRankingService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Ranking service initialized")

	sm.performanceService = NewPerformanceService(sm.repo, sm.db, sm.logger)
	sm.logger.Info("Performance service initialized")

	if sm.config.Scoring.Enabled {
		sm.scoringService = NewScoringService(sm.repo, sm.db, sm.logger, sm.validator, sm.rankingService, sm.notificationService)
		sm.logger.Info("Scoring service initialized")
	}

	if sm.config.Test.Enabled {
		sm.testService = NewTestService(sm.repo, sm.db, sm.logger, sm.validator, sm.notificationService)
		sm.logger.Info("Test service initialized")
	}

	if sm.config.Question.Enabled {
		sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Question service initialized")
	}

	if sm.config.Attempt.Enabled {
		sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.scoringService, sm.notificationService)
		sm.logger.Info("Attempt service initialized")
	}

	sm.importExportService = NewImportExportService(sm.repo, sm.db, sm.logger, sm.validator, sm.questionService)
	sm.logger.Info("ImportExport service initialized")

	return nil
}

// Service getters
func (sm *serviceManager) Test() TestService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Test.Enabled && sm.testService != nil {
		return sm.testService
	}

	panic("test service not enabled or not initialized")
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Question.Enabled && sm.questionService != nil {
		return sm.questionService
	}

	panic("question service not enabled or not initialized")
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Attempt.Enabled && sm.attemptService != nil {
		return sm.attemptService
	}

	panic("attempt service not enabled or not initialized")
}

func (sm *serviceManager) Scoring() ScoringService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Scoring.Enabled && sm.scoringService != nil {
		return sm.scoringService
	}

	panic("scoring service not enabled or not initialized")
}

func (sm *serviceManager) Ranking() RankingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.rankingService != nil {
		return sm.rankingService
	}

	panic("ranking service not initialized")
}

func (sm *serviceManager) Performance() PerformanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.performanceService != nil {
		return sm.performanceService
	}

	panic("performance service not initialized")
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.importExportService != nil {
		return sm.importExportService
	}

	panic("import/export service not initialized")
}

func (sm *serviceManager) Notification() NotificationEventService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.notificationService != nil {
		return sm.notificationService
	}

	panic("notification event service not initialized")
}

func (sm *serviceManager) EventPublisher() events.EventPublisher {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.eventPublisher
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

	if err := sm.repo.Ping(ctx); err != nil {
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

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
