package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/cache"
	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.CourseID)
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := q.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := db.WithContext(ctx).First(&dbQuestion, id).Error; err != nil {
			return nil, err
		}
		return &dbQuestion, nil
	})

	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := q.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID, question.CourseID)
	return nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx)

	question, err := q.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id, question.CourseID)
	return nil
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions batch: %w", err)
	}

	courseIDs := make(map[string]bool)
	for _, question := range questions {
		courseIDs[question.CourseID] = true
	}
	for courseID := range courseIDs {
		q.cacheManager.Question.InvalidatePattern(ctx, fmt.Sprintf("course:%s:*", courseID))
	}
	q.cacheManager.Question.InvalidatePattern(ctx, "list:*")

	return nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by ids: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	db := q.getDB(tx)
	if err := db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete questions batch: %w", err)
	}

	q.cacheManager.Question.InvalidatePattern(ctx, "*")
	return nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	var total int64

	query := db.WithContext(ctx).Model(&models.Question{})
	query = q.helpers.ApplyQuestionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&questions).Error; err != nil {
		return nil, 0, err
	}

	return questions, total, nil
}

// GetByTest returns a test's questions in membership order.
func (q *QuestionPostgreSQL) GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error) {
	db := q.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Joins("JOIN test_questions tq ON tq.question_id = questions.id").
		Where("tq.test_id = ?", testID).
		Order("tq.position ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by test: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	filters.CourseID = &courseID
	return q.List(ctx, tx, filters)
}

// UpdateStats folds one graded answer into the question's running
// statistics. Counters use SQL increments and the running average of
// response time is recomputed in-place, so the update is safe under
// concurrent submissions.
func (q *QuestionPostgreSQL) UpdateStats(ctx context.Context, tx *gorm.DB, delta repositories.AnswerStatsDelta) error {
	if !delta.Answered {
		return nil
	}

	db := q.getDB(tx)

	correctIncr := 0
	incorrectIncr := 0
	if delta.Correct {
		correctIncr = 1
	} else {
		incorrectIncr = 1
	}

	err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", delta.QuestionID).
		Updates(map[string]interface{}{
			"times_answered":       gorm.Expr("times_answered + 1"),
			"times_correct":        gorm.Expr("times_correct + ?", correctIncr),
			"times_incorrect":      gorm.Expr("times_incorrect + ?", incorrectIncr),
			"average_time_seconds": gorm.Expr("(average_time_seconds * times_answered + ?) / (times_answered + 1)", delta.TimeTakenSeconds),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update question stats: %w", err)
	}

	q.cacheManager.Question.Delete(ctx, fmt.Sprintf("id:%d", delta.QuestionID))
	return nil
}

func (q *QuestionPostgreSQL) IsUsedInTests(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := q.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.TestQuestion{}).
		Where("question_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
