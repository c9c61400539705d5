package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

type performanceService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewPerformanceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) PerformanceService {
	return &performanceService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// AnalyzeAttempt breaks a scored attempt down by topic. Strengths are
// topics at 70 or above, weak areas below 50; at most five of each.
func (s *performanceService) AnalyzeAttempt(ctx context.Context, attemptID uint, userID string) (*models.PerformanceSummary, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		user, err := s.repo.User().GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user.Role != models.RoleInstructor && user.Role != models.RoleAdmin {
			return nil, NewPermissionError(userID, attempt.ID, "attempt", "analyze", "attempt belongs to another user")
		}
	}

	if !attempt.IsTerminal() {
		return nil, ErrAttemptNotActive
	}

	questions, err := s.repo.Question().GetByTest(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}
	questionsByID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		questionsByID[q.ID] = q
	}

	topics := computeTopicScores(attempt.Answers, questionsByID)
	strengths, weaknesses := splitTopicScores(topics)

	return &models.PerformanceSummary{
		AttemptID:     attempt.ID,
		StrengthAreas: strengths,
		WeakAreas:     weaknesses,
		Topics:        topics,
	}, nil
}

// GetCourseProgress aggregates a user's best results across every published
// test in a course.
func (s *performanceService) GetCourseProgress(ctx context.Context, courseID, userID string) (*models.CourseProgress, error) {
	published := true
	tests, _, err := s.repo.Test().GetByCourse(ctx, nil, courseID, repositories.TestFilters{Published: &published})
	if err != nil {
		return nil, fmt.Errorf("failed to list course tests: %w", err)
	}

	progress := &models.CourseProgress{
		UserID:   userID,
		CourseID: courseID,
	}

	type bucket struct {
		correct int
		total   int
	}
	topicBuckets := make(map[string]*bucket)
	var percentageSum int

	for _, test := range tests {
		attempts, err := s.repo.Attempt().GetByUserAndTest(ctx, nil, userID, test.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get attempts for test %d: %w", test.ID, err)
		}

		best := bestSubmittedAttempt(attempts)
		if best == nil {
			continue
		}

		progress.TestsTaken++
		if best.Passed {
			progress.TestsPassed++
		}
		percentageSum += best.Percentage

		withAnswers, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, best.ID)
		if err != nil {
			s.logger.Warn("Failed to load answers for progress", "attempt_id", best.ID, "error", err)
			continue
		}
		questions, err := s.repo.Question().GetByTest(ctx, nil, test.ID)
		if err != nil {
			s.logger.Warn("Failed to load questions for progress", "test_id", test.ID, "error", err)
			continue
		}
		questionsByID := make(map[uint]*models.Question, len(questions))
		for _, q := range questions {
			questionsByID[q.ID] = q
		}
		for _, topic := range computeTopicScores(withAnswers.Answers, questionsByID) {
			b, ok := topicBuckets[topic.Topic]
			if !ok {
				b = &bucket{}
				topicBuckets[topic.Topic] = b
			}
			b.correct += topic.Correct
			b.total += topic.Total
		}
	}

	if progress.TestsTaken > 0 {
		progress.AverageScore = round2(float64(percentageSum) / float64(progress.TestsTaken))
	}

	topics := make([]models.TopicScore, 0, len(topicBuckets))
	for topic, b := range topicBuckets {
		topics = append(topics, models.TopicScore{
			Topic:   topic,
			Score:   int(math.Round(float64(b.correct) / float64(b.total) * 100)),
			Correct: b.correct,
			Total:   b.total,
		})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Score != topics[j].Score {
			return topics[i].Score > topics[j].Score
		}
		return topics[i].Topic < topics[j].Topic
	})
	progress.StrengthAreas, progress.WeakAreas = splitTopicScores(topics)

	return progress, nil
}

// bestSubmittedAttempt mirrors the leaderboard reduction: highest marks,
// ties broken by the faster attempt.
func bestSubmittedAttempt(attempts []*models.Attempt) *models.Attempt {
	var best *models.Attempt
	for _, attempt := range attempts {
		if !attempt.IsTerminal() {
			continue
		}
		if best == nil ||
			attempt.ObtainedMarks > best.ObtainedMarks ||
			(attempt.ObtainedMarks == best.ObtainedMarks && attempt.TimeTakenSeconds < best.TimeTakenSeconds) {
			best = attempt
		}
	}
	return best
}
