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

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	scoring   ScoringService
	events    NotificationEventService
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, scoring ScoringService, events NotificationEventService) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		scoring:   scoring,
		events:    events,
	}
}

// ===== ATTEMPT LIFECYCLE =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*AttemptResponse, error) {
	s.logger.Info("Starting attempt", "test_id", req.TestID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var attempt *models.Attempt
	var test *models.Test

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		test, err = txRepo.Test().GetByID(ctx, nil, req.TestID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTestNotFound
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		if err := s.checkEligibility(ctx, txRepo, test, userID); err != nil {
			return err
		}

		enrollmentID, err := txRepo.Enrollment().GetEnrollmentID(ctx, userID, test.CourseID)
		if err != nil {
			return fmt.Errorf("failed to resolve enrollment: %w", err)
		}

		count, err := txRepo.Attempt().CountByUserAndTest(ctx, nil, userID, test.ID)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}

		attempt = &models.Attempt{
			TestID:        test.ID,
			UserID:        userID,
			EnrollmentID:  enrollmentID,
			AttemptNumber: count + 1,
			Status:        models.AttemptInProgress,
			StartedAt:     time.Now().UTC(),
			TotalMarks:    test.TotalMarks,
		}

		if err := txRepo.Attempt().Create(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}

		questions, err := txRepo.Question().GetByTest(ctx, nil, test.ID)
		if err != nil {
			return fmt.Errorf("failed to load test questions: %w", err)
		}

		// One null slot per question; unanswered slots stay null through
		// submission and are never penalized.
		slots := make([]*models.AttemptAnswer, len(questions))
		for i, q := range questions {
			slots[i] = &models.AttemptAnswer{
				AttemptID:  attempt.ID,
				QuestionID: q.ID,
			}
		}
		if len(slots) > 0 {
			if err := txRepo.Answer().CreateBatch(ctx, nil, slots); err != nil {
				return fmt.Errorf("failed to create answer slots: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishAttemptStarted(ctx, attempt); err != nil {
		s.logger.Warn("Failed to publish attempt started event", "attempt_id", attempt.ID, "error", err)
	}

	questions, err := s.repo.Question().GetByTest(ctx, nil, test.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}

	response := s.buildAttemptResponse(attempt, test)
	response.Questions = s.buildQuestionViews(test, questions)

	s.logger.Info("Attempt started", "attempt_id", attempt.ID, "attempt_number", attempt.AttemptNumber, "user_id", userID)
	return response, nil
}

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	attempt, err = s.closeIfExpired(ctx, attempt, test)
	if err != nil {
		return nil, err
	}

	return s.buildAttemptResponse(attempt, test), nil
}

func (s *attemptService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	test, err := s.repo.Test().GetByID(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	attempt, err = s.closeIfExpired(ctx, attempt, test)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().GetByTest(ctx, nil, attempt.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test questions: %w", err)
	}

	response := s.buildAttemptResponse(attempt, test)
	response.Questions = s.buildQuestionViews(test, questions)
	return response, nil
}

func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	role, err := s.getUserRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Students only ever see their own attempts
	if role == models.RoleStudent {
		filters.UserID = &userID
	}

	attempts, total, err := s.repo.Attempt().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{Attempt: attempt}
	}

	page := 0
	if filters.Limit > 0 {
		page = filters.Offset / filters.Limit
	}

	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Page:     page,
		Size:     filters.Limit,
	}, nil
}

func (s *attemptService) GetByUserAndTest(ctx context.Context, testID uint, userID string) ([]*AttemptResponse, error) {
	attempts, err := s.repo.Attempt().GetByUserAndTest(ctx, nil, userID, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{Attempt: attempt}
	}
	return responses, nil
}

// HandleTimeout closes an expired in-progress attempt by scoring whatever
// answers were saved before the deadline.
func (s *attemptService) HandleTimeout(ctx context.Context, attemptID uint) error {
	s.logger.Info("Handling attempt timeout", "attempt_id", attemptID)

	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.IsTerminal() {
		return nil
	}

	if _, err := s.scoring.SubmitTimedOut(ctx, attemptID); err != nil {
		return err
	}
	return nil
}

func (s *attemptService) CanStart(ctx context.Context, testID uint, userID string) error {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	return s.checkEligibility(ctx, s.repo, test, userID)
}
