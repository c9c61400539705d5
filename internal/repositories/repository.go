package repositories

import "context"

// Repository aggregates every domain repository behind one interface.
type Repository interface {
	// Test domain
	Test() TestRepository
	TestQuestion() TestQuestionRepository

	// Question domain
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// Leaderboard domain
	Leaderboard() LeaderboardRepository

	// User domain (read-only for this service)
	User() UserRepository

	// Enrollment collaborator (read-only, external system of record)
	Enrollment() EnrollmentRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
