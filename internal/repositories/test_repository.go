package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// TestRepository interface for test definition operations
type TestRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	Update(ctx context.Context, tx *gorm.DB, test *models.Test) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters TestFilters) ([]*models.Test, int64, error)
	GetByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters TestFilters) ([]*models.Test, int64, error)
	CourseHasPublishedTest(ctx context.Context, tx *gorm.DB, courseID string) (bool, error)

	// Publication
	SetPublished(ctx context.Context, tx *gorm.DB, id uint, published bool) error

	// Derived totals, recomputed from the current question set.
	RecomputeTotals(ctx context.Context, tx *gorm.DB, id uint) error

	// Aggregate statistics after a scored attempt, applied with atomic
	// increments and a conditional max on highest_score.
	RecordAttemptScore(ctx context.Context, tx *gorm.DB, id uint, obtainedMarks float64) error
}

// TestQuestionRepository interface for the ordered test-question membership
type TestQuestionRepository interface {
	Add(ctx context.Context, tx *gorm.DB, testID, questionID uint) error
	Remove(ctx context.Context, tx *gorm.DB, testID, questionID uint) error
	GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.TestQuestion, error)
	Exists(ctx context.Context, tx *gorm.DB, testID, questionID uint) (bool, error)
	CountByTest(ctx context.Context, tx *gorm.DB, testID uint) (int, error)
	NextPosition(ctx context.Context, tx *gorm.DB, testID uint) (int, error)
	DeleteByTest(ctx context.Context, tx *gorm.DB, testID uint) error
}
