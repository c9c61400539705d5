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

type LeaderboardPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLeaderboardPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.LeaderboardRepository {
	return &LeaderboardPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// BestAttemptsByTest reduces a test's submitted attempts to one row per
// user (highest obtained_marks, ties broken by smaller time_taken_seconds)
// and returns them in display order with the total entrant count.
func (l *LeaderboardPostgreSQL) BestAttemptsByTest(ctx context.Context, tx *gorm.DB, testID uint, limit, offset int) ([]*models.Attempt, int64, error) {
	db := l.getDB(tx)

	submitted := []models.AttemptStatus{models.AttemptSubmitted, models.AttemptTimedOut}

	var total int64
	if err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("test_id = ? AND status IN ?", testID, submitted).
		Distinct("user_id").
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count leaderboard entrants: %w", err)
	}

	// limit <= 0 means the whole board, used by exports
	if limit <= 0 {
		limit = int(total)
	}

	cacheKey := fmt.Sprintf("test:%d:page:%d:%d", testID, offset, limit)
	var attempts []*models.Attempt

	err := l.cacheManager.Leaderboard.CacheOrExecute(ctx, cacheKey, &attempts, cache.LeaderboardCacheConfig.TTL, func() (interface{}, error) {
		var best []*models.Attempt
		err := db.WithContext(ctx).Raw(`
			SELECT * FROM (
				SELECT DISTINCT ON (user_id) *
				FROM attempts
				WHERE test_id = ? AND status IN ?
				ORDER BY user_id, obtained_marks DESC, time_taken_seconds ASC
			) best
			ORDER BY obtained_marks DESC, time_taken_seconds ASC
			LIMIT ? OFFSET ?`, testID, submitted, limit, offset).
			Scan(&best).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query best attempts: %w", err)
		}
		return best, nil
	})

	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (l *LeaderboardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return l.db
}
