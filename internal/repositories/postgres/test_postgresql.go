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

type TestPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewTestPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.TestRepository {
	return &TestPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (t *TestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}

	cache.InvalidateTestCache(ctx, t.cacheManager, test.ID, test.CourseID)
	return nil
}

func (t *TestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	db := t.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var test models.Test

	err := t.cacheManager.Test.CacheOrExecute(ctx, cacheKey, &test, cache.TestCacheConfig.TTL, func() (interface{}, error) {
		var dbTest models.Test
		if err := db.WithContext(ctx).First(&dbTest, id).Error; err != nil {
			return nil, err
		}
		return &dbTest, nil
	})

	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (t *TestPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error) {
	db := t.getDB(tx)
	var test models.Test
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_questions.position ASC")
		}).
		Preload("Questions.Question").
		First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (t *TestPostgreSQL) Update(ctx context.Context, tx *gorm.DB, test *models.Test) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Save(test).Error; err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}

	cache.InvalidateTestCache(ctx, t.cacheManager, test.ID, test.CourseID)
	return nil
}

func (t *TestPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := t.getDB(tx)

	test, err := t.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	// Cascade: answers, attempts, memberships, then the test itself.
	return db.WithContext(ctx).Transaction(func(txInner *gorm.DB) error {
		if err := txInner.
			Where("attempt_id IN (?)", txInner.Model(&models.Attempt{}).Select("id").Where("test_id = ?", id)).
			Delete(&models.AttemptAnswer{}).Error; err != nil {
			return fmt.Errorf("failed to delete attempt answers: %w", err)
		}
		if err := txInner.Where("test_id = ?", id).Delete(&models.Attempt{}).Error; err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if err := txInner.Where("test_id = ?", id).Delete(&models.TestQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to delete test questions: %w", err)
		}
		if err := txInner.Delete(&models.Test{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete test: %w", err)
		}

		cache.InvalidateTestCache(ctx, t.cacheManager, id, test.CourseID)
		return nil
	})
}

func (t *TestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	db := t.getDB(tx)
	var tests []*models.Test
	var total int64

	query := db.WithContext(ctx).Model(&models.Test{})
	query = t.helpers.ApplyTestFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = t.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, err
	}

	return tests, total, nil
}

func (t *TestPostgreSQL) GetByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.TestFilters) ([]*models.Test, int64, error) {
	filters.CourseID = &courseID
	return t.List(ctx, tx, filters)
}

func (t *TestPostgreSQL) CourseHasPublishedTest(ctx context.Context, tx *gorm.DB, courseID string) (bool, error) {
	db := t.getDB(tx)
	cacheKey := fmt.Sprintf("course:%s:has_test", courseID)

	if cached, err := t.cacheManager.Exists.GetString(ctx, cacheKey); err == nil {
		return cached == "true", nil
	}

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("course_id = ? AND is_published = true", courseID).
		Count(&count).Error; err != nil {
		return false, err
	}

	hasTest := count > 0
	t.cacheManager.Exists.SetString(ctx, cacheKey, fmt.Sprintf("%t", hasTest), cache.ExistsCacheConfig.TTL)

	return hasTest, nil
}

func (t *TestPostgreSQL) SetPublished(ctx context.Context, tx *gorm.DB, id uint, published bool) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ?", id).
		Update("is_published", published).Error; err != nil {
		return fmt.Errorf("failed to set published: %w", err)
	}

	t.cacheManager.Test.Delete(ctx, fmt.Sprintf("id:%d", id))
	return nil
}

// RecomputeTotals derives total_questions and total_marks from the current
// question set in one statement, so concurrent membership edits converge.
func (t *TestPostgreSQL) RecomputeTotals(ctx context.Context, tx *gorm.DB, id uint) error {
	db := t.getDB(tx)
	err := db.WithContext(ctx).Exec(`
		UPDATE tests SET
			total_questions = agg.cnt,
			total_marks = agg.marks,
			updated_at = NOW()
		FROM (
			SELECT COUNT(q.id) AS cnt, COALESCE(SUM(q.marks), 0) AS marks
			FROM test_questions tq
			JOIN questions q ON q.id = tq.question_id
			WHERE tq.test_id = ?
		) AS agg
		WHERE tests.id = ?`, id, id).Error
	if err != nil {
		return fmt.Errorf("failed to recompute test totals: %w", err)
	}

	t.cacheManager.Test.Delete(ctx, fmt.Sprintf("id:%d", id))
	return nil
}

// RecordAttemptScore folds one scored attempt into the test's aggregate
// statistics. Increments and the running average happen in SQL so that
// concurrent submissions never clobber each other's counts.
func (t *TestPostgreSQL) RecordAttemptScore(ctx context.Context, tx *gorm.DB, id uint, obtainedMarks float64) error {
	db := t.getDB(tx)
	err := db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_attempts": gorm.Expr("total_attempts + 1"),
			"average_score":  gorm.Expr("(average_score * total_attempts + ?) / (total_attempts + 1)", obtainedMarks),
			"highest_score":  gorm.Expr("GREATEST(highest_score, ?)", obtainedMarks),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record attempt score: %w", err)
	}

	t.cacheManager.Test.Delete(ctx, fmt.Sprintf("id:%d", id))
	return nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (t *TestPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

// ===== TEST QUESTION REPOSITORY IMPLEMENTATION =====

type TestQuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewTestQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.TestQuestionRepository {
	return &TestQuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (tq *TestQuestionPostgreSQL) Add(ctx context.Context, tx *gorm.DB, testID, questionID uint) error {
	db := tq.getDB(tx)

	position, err := tq.NextPosition(ctx, tx, testID)
	if err != nil {
		return err
	}

	membership := &models.TestQuestion{
		TestID:     testID,
		QuestionID: questionID,
		Position:   position,
	}
	if err := db.WithContext(ctx).Create(membership).Error; err != nil {
		return fmt.Errorf("failed to add question to test: %w", err)
	}

	tq.cacheManager.Test.Delete(ctx, fmt.Sprintf("id:%d", testID), fmt.Sprintf("questions:%d", testID))
	return nil
}

func (tq *TestQuestionPostgreSQL) Remove(ctx context.Context, tx *gorm.DB, testID, questionID uint) error {
	db := tq.getDB(tx)
	if err := db.WithContext(ctx).
		Where("test_id = ? AND question_id = ?", testID, questionID).
		Delete(&models.TestQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to remove question from test: %w", err)
	}

	tq.cacheManager.Test.Delete(ctx, fmt.Sprintf("id:%d", testID), fmt.Sprintf("questions:%d", testID))
	return nil
}

func (tq *TestQuestionPostgreSQL) GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.TestQuestion, error) {
	db := tq.getDB(tx)
	var memberships []*models.TestQuestion
	if err := db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("position ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("failed to get test questions: %w", err)
	}
	return memberships, nil
}

func (tq *TestQuestionPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, testID, questionID uint) (bool, error) {
	db := tq.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.TestQuestion{}).
		Where("test_id = ? AND question_id = ?", testID, questionID).
		Count(&count).Error
	return count > 0, err
}

func (tq *TestQuestionPostgreSQL) CountByTest(ctx context.Context, tx *gorm.DB, testID uint) (int, error) {
	db := tq.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.TestQuestion{}).
		Where("test_id = ?", testID).
		Count(&count).Error
	return int(count), err
}

func (tq *TestQuestionPostgreSQL) NextPosition(ctx context.Context, tx *gorm.DB, testID uint) (int, error) {
	db := tq.getDB(tx)
	var maxPosition int
	err := db.WithContext(ctx).
		Model(&models.TestQuestion{}).
		Where("test_id = ?", testID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPosition).Error
	return maxPosition + 1, err
}

func (tq *TestQuestionPostgreSQL) DeleteByTest(ctx context.Context, tx *gorm.DB, testID uint) error {
	db := tq.getDB(tx)
	return db.WithContext(ctx).Where("test_id = ?", testID).Delete(&models.TestQuestion{}).Error
}

func (tq *TestQuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return tq.db
}
