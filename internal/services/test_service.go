package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

type testService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	events    NotificationEventService
}

func NewTestService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, events NotificationEventService) TestService {
	return &testService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		events:    events,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *testService) Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*TestResponse, error) {
	s.logger.Info("Creating test",
		"course_id", req.CourseID,
		"title", req.Title,
		"creator_id", creatorID)

	// Validate request
	if errs := s.validator.GetBusinessValidator().ValidateTestCreate(req); len(errs) > 0 {
		return nil, errs
	}

	canCreate, err := s.canManageTests(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "test", "create", "requires instructor role")
	}

	test := s.buildTestModel(req, creatorID)

	if err := s.repo.Test().Create(ctx, s.db, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created successfully", "test_id", test.ID)

	return s.buildTestResponse(ctx, test, creatorID), nil
}

func (s *testService) GetByID(ctx context.Context, id uint, userID string) (*TestResponse, error) {
	test, err := s.repo.Test().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	return s.buildTestResponse(ctx, test, userID), nil
}

func (s *testService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*TestResponse, error) {
	test, err := s.repo.Test().GetByIDWithQuestions(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test with questions: %w", err)
	}

	return s.buildTestResponse(ctx, test, userID), nil
}

func (s *testService) Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*TestResponse, error) {
	s.logger.Info("Updating test", "test_id", id, "user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	canEdit, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "test", "update", "not owner or insufficient permissions")
	}

	if errs := s.validator.GetBusinessValidator().ValidateTestUpdate(req, test); len(errs) > 0 {
		return nil, errs
	}

	s.applyTestUpdates(test, req)

	if err := s.repo.Test().Update(ctx, s.db, test); err != nil {
		return nil, fmt.Errorf("failed to update test: %w", err)
	}

	s.logger.Info("Test updated successfully", "test_id", id)

	return s.buildTestResponse(ctx, test, userID), nil
}

func (s *testService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting test", "test_id", id, "user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	canEdit, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "test", "delete", "not owner or insufficient permissions")
	}

	if err := s.repo.Test().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	s.logger.Info("Test deleted successfully", "test_id", id)

	return nil
}

// ===== LIST OPERATIONS =====

func (s *testService) List(ctx context.Context, filters repositories.TestFilters, userID string) (*TestListResponse, error) {
	// Students only ever see published tests
	if published, err := s.restrictToPublished(ctx, userID); err != nil {
		return nil, err
	} else if published {
		t := true
		filters.Published = &t
	}

	tests, total, err := s.repo.Test().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	return s.buildTestListResponse(ctx, tests, total, filters.Limit, filters.Offset, userID), nil
}

func (s *testService) GetByCourse(ctx context.Context, courseID string, filters repositories.TestFilters, userID string) (*TestListResponse, error) {
	if published, err := s.restrictToPublished(ctx, userID); err != nil {
		return nil, err
	} else if published {
		t := true
		filters.Published = &t
	}

	tests, total, err := s.repo.Test().GetByCourse(ctx, s.db, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests by course: %w", err)
	}

	return s.buildTestListResponse(ctx, tests, total, filters.Limit, filters.Offset, userID), nil
}

// ===== PUBLICATION =====

func (s *testService) Publish(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Publishing test", "test_id", id, "user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	canEdit, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "test", "publish", "not owner or insufficient permissions")
	}

	if test.IsPublished {
		return ErrTestAlreadyPublished
	}

	// An empty test cannot be taken
	questionCount, err := s.repo.TestQuestion().CountByTest(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if questionCount == 0 {
		return ErrTestHasNoQuestions
	}

	if err := s.repo.Test().SetPublished(ctx, s.db, id, true); err != nil {
		return fmt.Errorf("failed to publish test: %w", err)
	}

	test.IsPublished = true
	if err := s.events.PublishTestPublished(ctx, test, userID); err != nil {
		s.logger.Error("Failed to publish test event", "test_id", id, "error", err)
	}

	s.logger.Info("Test published successfully", "test_id", id)

	return nil
}

func (s *testService) Unpublish(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Unpublishing test", "test_id", id, "user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	canEdit, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "test", "unpublish", "not owner or insufficient permissions")
	}

	if !test.IsPublished {
		return ErrTestNotPublished
	}

	if err := s.repo.Test().SetPublished(ctx, s.db, id, false); err != nil {
		return fmt.Errorf("failed to unpublish test: %w", err)
	}

	s.logger.Info("Test unpublished successfully", "test_id", id)

	return nil
}

// ===== QUESTION MEMBERSHIP =====

func (s *testService) AddQuestion(ctx context.Context, testID, questionID uint, userID string) error {
	s.logger.Info("Adding question to test",
		"test_id", testID,
		"question_id", questionID,
		"user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, s.db, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	canEdit, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, testID, "test", "add_question", "not owner or insufficient permissions")
	}

	if _, err := s.repo.Question().GetByID(ctx, s.db, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	exists, err := s.repo.TestQuestion().Exists(ctx, s.db, testID, questionID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return NewBusinessRuleError("duplicate_question", "question is already part of the test")
	}

	// Membership change and totals move together
	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.TestQuestion().Add(ctx, nil, testID, questionID); err != nil {
			return fmt.Errorf("failed to add question: %w", err)
		}
		return txRepo.Test().RecomputeTotals(ctx, nil, testID)
	})
}

func (s *testService) RemoveQuestion(ctx context.Context, testID, questionID uint, userID string) error {
	s.logger.Info("Removing question from test",
		"test_id", testID,
		"question_id", questionID,
		"user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, s.db, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to get test: %w", err)
	}

	canEdit, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, testID, "test", "remove_question", "not owner or insufficient permissions")
	}

	exists, err := s.repo.TestQuestion().Exists(ctx, s.db, testID, questionID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !exists {
		return ErrQuestionNotFound
	}

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.TestQuestion().Remove(ctx, nil, testID, questionID); err != nil {
			return fmt.Errorf("failed to remove question: %w", err)
		}
		return txRepo.Test().RecomputeTotals(ctx, nil, testID)
	})
}

func (s *testService) GetQuestions(ctx context.Context, testID uint, userID string) ([]*QuestionResponse, error) {
	if _, err := s.repo.Test().GetByID(ctx, s.db, testID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	questions, err := s.repo.Question().GetByTest(ctx, s.db, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test questions: %w", err)
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, question := range questions {
		responses[i] = &QuestionResponse{Question: question}
	}

	return responses, nil
}

// ===== STATISTICS =====

func (s *testService) GetStats(ctx context.Context, id uint, userID string) (*repositories.TestAttemptStats, error) {
	test, err := s.repo.Test().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	canView, err := s.canEditTest(ctx, test, userID)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, NewPermissionError(userID, id, "test", "view_stats", "not owner or insufficient permissions")
	}

	stats, err := s.repo.Attempt().GetTestAttemptStats(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get test stats: %w", err)
	}

	return stats, nil
}

// ===== PERMISSION CHECKS =====

func (s *testService) CanEdit(ctx context.Context, testID uint, userID string) (bool, error) {
	test, err := s.repo.Test().GetByID(ctx, s.db, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return s.canEditTest(ctx, test, userID)
}
