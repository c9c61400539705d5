package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// AttemptRepository interface for attempt lifecycle operations
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) ([]*models.Attempt, error)
	GetLatestByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) (*models.Attempt, error)
	CountByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) (int, error)

	// MarkSubmitted flips status away from in_progress with a conditional
	// update. Returns false when the row was not in_progress anymore, which
	// is how a second concurrent submit loses the race.
	MarkSubmitted(ctx context.Context, tx *gorm.DB, id uint, status models.AttemptStatus, submittedAt time.Time, timeTakenSeconds int) (bool, error)

	// Ranking snapshot queries; excludeAttemptID keeps the attempt being
	// ranked out of its own snapshot
	CountSubmittedByTest(ctx context.Context, tx *gorm.DB, testID, excludeAttemptID uint) (int, error)
	CountSubmittedWithHigherMarks(ctx context.Context, tx *gorm.DB, testID, excludeAttemptID uint, obtainedMarks float64) (int, error)

	// Statistics
	GetTestAttemptStats(ctx context.Context, tx *gorm.DB, testID uint) (*TestAttemptStats, error)
}

// AnswerRepository interface for per-question attempt answers
type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error)
	Update(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error
	UpdateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
}

// LeaderboardRepository reduces a test's submitted attempts to one best
// attempt per user, ordered for display.
type LeaderboardRepository interface {
	BestAttemptsByTest(ctx context.Context, tx *gorm.DB, testID uint, limit, offset int) ([]*models.Attempt, int64, error)
}

// EnrollmentRepository is the engine's view of the enrollment system of
// record; this service never writes enrollments.
type EnrollmentRepository interface {
	IsActivelyEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	GetEnrollmentID(ctx context.Context, userID, courseID string) (string, error)
}
