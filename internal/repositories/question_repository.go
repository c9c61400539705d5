package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error)
	DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters QuestionFilters) ([]*models.Question, int64, error)
	GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error)
	GetByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters QuestionFilters) ([]*models.Question, int64, error)

	// Statistics. UpdateStats applies atomic increments so concurrent
	// submissions never lose counts to read-modify-write races.
	UpdateStats(ctx context.Context, tx *gorm.DB, delta AnswerStatsDelta) error

	// Validation and checks
	IsUsedInTests(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}
