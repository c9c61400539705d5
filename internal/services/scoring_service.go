package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

type scoringService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	ranking   RankingService
	events    NotificationEventService
}

func NewScoringService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, ranking RankingService, events NotificationEventService) ScoringService {
	return &scoringService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		ranking:   ranking,
		events:    events,
	}
}

// ===== SUBMISSION =====

func (s *scoringService) Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, userID string) (*ScoreResult, error) {
	s.logger.Info("Submitting attempt", "attempt_id", attemptID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attempt.ID, "attempt", "submit", "attempt belongs to another user")
	}
	if attempt.IsTerminal() {
		return nil, ErrAttemptAlreadySubmitted
	}

	test, err := s.repo.Test().GetByID(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	now := time.Now().UTC()
	deadline := attemptDeadline(attempt, test)

	// A submission that arrives after the clock ran out still counts the
	// answers it carries, but closes as timed_out.
	status := models.AttemptSubmitted
	if now.After(deadline) {
		status = models.AttemptTimedOut
	}

	s.mergeSubmittedAnswers(attempt, req.Answers)

	timeTaken := int(now.Sub(attempt.StartedAt).Seconds())
	if req.TimeTakenSeconds != nil && *req.TimeTakenSeconds <= timeTaken {
		timeTaken = *req.TimeTakenSeconds
	}
	if max := test.Duration * 60; timeTaken > max {
		timeTaken = max
	}

	return s.score(ctx, attempt, test, status, now, timeTaken)
}

func (s *scoringService) SubmitTimedOut(ctx context.Context, attemptID uint) (*ScoreResult, error) {
	s.logger.Info("Closing timed out attempt", "attempt_id", attemptID)

	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.IsTerminal() {
		return nil, ErrAttemptAlreadySubmitted
	}

	test, err := s.repo.Test().GetByID(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	return s.score(ctx, attempt, test, models.AttemptTimedOut, time.Now().UTC(), test.Duration*60)
}

// score grades the attempt's answer set, writes the score block exactly
// once, and runs the best-effort post-scoring chain. The conditional status
// flip is the single writer guard: whichever caller loses it gets
// ErrAttemptAlreadySubmitted and nothing else happens.
func (s *scoringService) score(ctx context.Context, attempt *models.Attempt, test *models.Test, status models.AttemptStatus, submittedAt time.Time, timeTakenSeconds int) (*ScoreResult, error) {
	questions, err := s.repo.Question().GetByTest(ctx, nil, test.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}
	questionsByID := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		questionsByID[q.ID] = q
	}

	outcome := gradeAttempt(attempt.Answers, questionsByID, test)

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		flipped, err := txRepo.Attempt().MarkSubmitted(ctx, nil, attempt.ID, status, submittedAt, timeTakenSeconds)
		if err != nil {
			return fmt.Errorf("failed to mark attempt submitted: %w", err)
		}
		if !flipped {
			return ErrAttemptAlreadySubmitted
		}

		updates := make([]*models.AttemptAnswer, len(attempt.Answers))
		for i := range attempt.Answers {
			updates[i] = &attempt.Answers[i]
		}
		if len(updates) > 0 {
			if err := txRepo.Answer().UpdateBatch(ctx, nil, updates); err != nil {
				return fmt.Errorf("failed to update answers: %w", err)
			}
		}

		attempt.Status = status
		attempt.SubmittedAt = &submittedAt
		attempt.TimeTakenSeconds = timeTakenSeconds
		attempt.ObtainedMarks = outcome.ObtainedMarks
		attempt.NegativeMarks = outcome.NegativeMarks
		attempt.Percentage = outcome.Percentage
		attempt.CorrectCount = outcome.CorrectCount
		attempt.IncorrectCount = outcome.IncorrectCount
		attempt.UnansweredCount = outcome.UnansweredCount
		attempt.Passed = outcome.Passed

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to write score block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.runPostScoring(ctx, attempt, test, questionsByID, status == models.AttemptTimedOut)

	s.logger.Info("Attempt scored",
		"attempt_id", attempt.ID,
		"status", status,
		"obtained_marks", attempt.ObtainedMarks,
		"percentage", attempt.Percentage,
		"passed", attempt.Passed)

	return &ScoreResult{
		AttemptID:       attempt.ID,
		Status:          attempt.Status,
		TotalMarks:      attempt.TotalMarks,
		ObtainedMarks:   attempt.ObtainedMarks,
		NegativeMarks:   attempt.NegativeMarks,
		Percentage:      attempt.Percentage,
		CorrectCount:    attempt.CorrectCount,
		IncorrectCount:  attempt.IncorrectCount,
		UnansweredCount: attempt.UnansweredCount,
		Passed:          attempt.Passed,
		Rank:            attempt.Rank,
		Percentile:      attempt.Percentile,
		SubmittedAt:     submittedAt,
	}, nil
}

// runPostScoring applies everything that must never roll the score back:
// question statistics, test aggregates, the frozen rank snapshot, the topic
// analysis, and the submitted event. Failures are logged and skipped.
func (s *scoringService) runPostScoring(ctx context.Context, attempt *models.Attempt, test *models.Test, questionsByID map[uint]*models.Question, timedOut bool) {
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		if _, ok := questionsByID[answer.QuestionID]; !ok {
			continue
		}
		delta := repositories.AnswerStatsDelta{
			QuestionID:       answer.QuestionID,
			Answered:         isAnswered(answer.SelectedAnswer),
			Correct:          answer.IsCorrect != nil && *answer.IsCorrect,
			TimeTakenSeconds: answer.TimeTakenSeconds,
		}
		if err := s.repo.Question().UpdateStats(ctx, nil, delta); err != nil {
			s.logger.Warn("Failed to update question stats", "question_id", answer.QuestionID, "error", err)
		}
	}

	if err := s.repo.Test().RecordAttemptScore(ctx, nil, attempt.TestID, attempt.ObtainedMarks); err != nil {
		s.logger.Warn("Failed to record test aggregates", "test_id", attempt.TestID, "error", err)
	}

	// Rank and percentile freeze against the submissions that completed
	// before this one; the attempt's own row is excluded from the counts.
	rank, percentile, err := s.ranking.ComputeRank(ctx, attempt.TestID, attempt.ID, attempt.ObtainedMarks)
	if err != nil {
		s.logger.Warn("Failed to compute rank", "attempt_id", attempt.ID, "error", err)
	} else {
		attempt.Rank = &rank
		attempt.Percentile = &percentile
	}

	topics := computeTopicScores(attempt.Answers, questionsByID)
	strengths, weaknesses := splitTopicScores(topics)
	if err := marshalTopicAreas(attempt, strengths, weaknesses); err != nil {
		s.logger.Warn("Failed to encode topic areas", "attempt_id", attempt.ID, "error", err)
	}

	if err := s.repo.Attempt().Update(ctx, nil, attempt); err != nil {
		s.logger.Warn("Failed to persist post-scoring fields", "attempt_id", attempt.ID, "error", err)
	}

	if err := s.events.PublishAttemptSubmitted(ctx, attempt, test, timedOut); err != nil {
		s.logger.Warn("Failed to publish attempt submitted event", "attempt_id", attempt.ID, "error", err)
	}
}
