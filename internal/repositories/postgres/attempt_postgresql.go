package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/cache"
	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_answers.question_id ASC")
		}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	a.cacheManager.Fast.Delete(ctx, fmt.Sprintf("attempt:%d:answers", attempt.ID))
	return nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Attempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) ([]*models.Attempt, error) {
	db := a.getDB(tx)
	var attempts []*models.Attempt
	if err := db.WithContext(ctx).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempts by user and test: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetLatestByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) (*models.Attempt, error) {
	db := a.getDB(tx)
	var attempt models.Attempt
	err := db.WithContext(ctx).
		Where("user_id = ? AND test_id = ?", userID, testID).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) (int, error) {
	db := a.getDB(tx)
	count, err := a.helpers.CountAttemptsByUser(ctx, db, testID, userID)
	return int(count), err
}

// MarkSubmitted performs the conditional status flip that serializes
// submissions: only a row still in_progress is updated, and the affected
// row count tells the caller whether it won the race.
func (a *AttemptPostgreSQL) MarkSubmitted(ctx context.Context, tx *gorm.DB, id uint, status models.AttemptStatus, submittedAt time.Time, timeTakenSeconds int) (bool, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":             status,
			"submitted_at":       submittedAt,
			"time_taken_seconds": timeTakenSeconds,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark attempt submitted: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (a *AttemptPostgreSQL) CountSubmittedByTest(ctx context.Context, tx *gorm.DB, testID, excludeAttemptID uint) (int, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("test_id = ? AND id <> ? AND status IN ?",
			testID, excludeAttemptID, []models.AttemptStatus{models.AttemptSubmitted, models.AttemptTimedOut}).
		Count(&count).Error
	return int(count), err
}

func (a *AttemptPostgreSQL) CountSubmittedWithHigherMarks(ctx context.Context, tx *gorm.DB, testID, excludeAttemptID uint, obtainedMarks float64) (int, error) {
	db := a.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("test_id = ? AND id <> ? AND status IN ? AND obtained_marks > ?",
			testID, excludeAttemptID, []models.AttemptStatus{models.AttemptSubmitted, models.AttemptTimedOut}, obtainedMarks).
		Count(&count).Error
	return int(count), err
}

func (a *AttemptPostgreSQL) GetTestAttemptStats(ctx context.Context, tx *gorm.DB, testID uint) (*repositories.TestAttemptStats, error) {
	db := a.getDB(tx)

	var totalAttempts int64
	if err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("test_id = ?", testID).
		Count(&totalAttempts).Error; err != nil {
		return nil, err
	}

	// Status breakdown
	statusBreakdown := make(map[models.AttemptStatus]int)
	statuses := []models.AttemptStatus{models.AttemptInProgress, models.AttemptSubmitted, models.AttemptTimedOut}
	for _, status := range statuses {
		count, err := a.helpers.CountAttemptsByStatus(ctx, db, testID, status)
		if err != nil {
			return nil, err
		}
		statusBreakdown[status] = int(count)
	}

	// Aggregate stats in single query
	var avgScore, highestScore float64
	var submittedCount, passedCount int64

	db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("test_id = ? AND status IN ?", testID, []models.AttemptStatus{models.AttemptSubmitted, models.AttemptTimedOut}).
		Select("COALESCE(AVG(obtained_marks), 0), COALESCE(MAX(obtained_marks), 0), COUNT(*), SUM(CASE WHEN passed = true THEN 1 ELSE 0 END)").
		Row().Scan(&avgScore, &highestScore, &submittedCount, &passedCount)

	passRate := float64(0)
	if submittedCount > 0 {
		passRate = float64(passedCount) / float64(submittedCount)
	}

	return &repositories.TestAttemptStats{
		TotalAttempts:   int(totalAttempts),
		SubmittedCount:  int(submittedCount),
		StatusBreakdown: statusBreakdown,
		AverageScore:    avgScore,
		HighestScore:    highestScore,
		PassRate:        passRate,
	}, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// ===== ANSWER REPOSITORY IMPLEMENTATION =====

// AnswerPostgreSQL implements the AnswerRepository interface
type AnswerPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

// NewAnswerPostgreSQL creates a new answer repository instance
func NewAnswerPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AnswerRepository {
	return &AnswerPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// CreateBatch creates multiple answers in a batch
func (ar *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	db := ar.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(answers, 100).Error; err != nil {
		return fmt.Errorf("failed to create answers batch: %w", err)
	}

	attemptIDs := make(map[uint]bool)
	for _, answer := range answers {
		attemptIDs[answer.AttemptID] = true
	}
	for attemptID := range attemptIDs {
		ar.cacheManager.Fast.InvalidatePattern(ctx, fmt.Sprintf("attempt:%d:*", attemptID))
	}

	return nil
}

// GetByAttempt retrieves all answers for an attempt with caching
func (ar *AnswerPostgreSQL) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.AttemptAnswer, error) {
	db := ar.getDB(tx)
	cacheKey := fmt.Sprintf("attempt:%d:answers", attemptID)
	var answers []*models.AttemptAnswer

	err := ar.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &answers, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbAnswers []*models.AttemptAnswer
		if err := db.WithContext(ctx).
			Where("attempt_id = ?", attemptID).
			Order("question_id ASC").
			Find(&dbAnswers).Error; err != nil {
			return nil, fmt.Errorf("failed to get answers by attempt: %w", err)
		}
		return dbAnswers, nil
	})

	return answers, err
}

// Update updates an existing answer
func (ar *AnswerPostgreSQL) Update(ctx context.Context, tx *gorm.DB, answer *models.AttemptAnswer) error {
	db := ar.getDB(tx)
	if err := db.WithContext(ctx).Save(answer).Error; err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}

	ar.cacheManager.Fast.Delete(ctx, fmt.Sprintf("attempt:%d:answers", answer.AttemptID))
	return nil
}

// UpdateBatch updates multiple answers in a batch
func (ar *AnswerPostgreSQL) UpdateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	db := ar.getDB(tx)
	err := db.WithContext(ctx).Transaction(func(txInner *gorm.DB) error {
		for _, answer := range answers {
			if err := txInner.Save(answer).Error; err != nil {
				return fmt.Errorf("failed to update answer ID %d: %w", answer.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	attemptIDs := make(map[uint]bool)
	for _, answer := range answers {
		attemptIDs[answer.AttemptID] = true
	}
	for attemptID := range attemptIDs {
		ar.cacheManager.Fast.InvalidatePattern(ctx, fmt.Sprintf("attempt:%d:*", attemptID))
	}

	return nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (ar *AnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}
