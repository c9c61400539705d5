package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

type rankingService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewRankingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) RankingService {
	return &rankingService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// ComputeRank places an attempt's score among the test's other submitted
// attempts: rank is one plus the count of strictly higher scores, so equal
// scores share a rank. Both counts exclude the attempt itself, since the
// row is already flipped to submitted by the time this runs. The first
// submission for a test is rank 1 at the 100th percentile.
func (s *rankingService) ComputeRank(ctx context.Context, testID, attemptID uint, obtainedMarks float64) (int, int, error) {
	higher, err := s.repo.Attempt().CountSubmittedWithHigherMarks(ctx, nil, testID, attemptID, obtainedMarks)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count higher scores: %w", err)
	}
	total, err := s.repo.Attempt().CountSubmittedByTest(ctx, nil, testID, attemptID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	rank := higher + 1

	percentile := 100
	if total > 0 {
		percentile = int(math.Round(float64(total-rank) / float64(total) * 100))
		// A score below every earlier submission floors at 0.
		if percentile < 0 {
			percentile = 0
		}
	}

	return rank, percentile, nil
}

// GetLeaderboard returns one row per user holding their best submitted
// attempt: highest marks, with ties broken by the faster attempt.
func (s *rankingService) GetLeaderboard(ctx context.Context, testID uint, page, size int, userID string) (*LeaderboardResponse, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !test.IsPublished {
		return nil, ErrTestNotPublished
	}

	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	offset := page * size

	attempts, total, err := s.repo.Leaderboard().BestAttemptsByTest(ctx, nil, testID, size, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]*models.LeaderboardEntry, len(attempts))
	userIDs := make([]string, len(attempts))
	for i, attempt := range attempts {
		userIDs[i] = attempt.UserID
		entries[i] = &models.LeaderboardEntry{
			Position:         offset + i + 1,
			UserID:           attempt.UserID,
			AttemptID:        attempt.ID,
			ObtainedMarks:    attempt.ObtainedMarks,
			Percentage:       attempt.Percentage,
			TimeTakenSeconds: attempt.TimeTakenSeconds,
			Passed:           attempt.Passed,
		}
	}

	// Display names resolve best-effort; a failed lookup leaves them blank
	if len(userIDs) > 0 {
		users, err := s.repo.User().GetByIDs(ctx, userIDs)
		if err != nil {
			s.logger.Warn("Failed to resolve leaderboard user names", "test_id", testID, "error", err)
		} else {
			namesByID := make(map[string]string, len(users))
			for _, u := range users {
				namesByID[u.ID] = u.FullName
			}
			for _, entry := range entries {
				entry.UserName = namesByID[entry.UserID]
			}
		}
	}

	return &LeaderboardResponse{
		TestID:  testID,
		Entries: entries,
		Total:   total,
		Page:    page,
		Size:    size,
	}, nil
}
