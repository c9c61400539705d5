package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error) {
	s.logger.Info("Creating question",
		"course_id", req.CourseID,
		"type", req.Type,
		"creator_id", creatorID)

	// Validate request including type-specific shapes
	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	// Only instructors and admins author questions
	canCreate, err := s.canManageQuestions(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "question", "create", "requires instructor role")
	}

	question, err := s.buildQuestionModel(req, creatorID)
	if err != nil {
		return nil, err
	}

	// Adding directly to a test updates its derived totals in the same
	// transaction
	if req.TestID != nil {
		err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			if err := txRepo.Question().Create(ctx, nil, question); err != nil {
				return fmt.Errorf("failed to create question: %w", err)
			}
			if err := txRepo.TestQuestion().Add(ctx, nil, *req.TestID, question.ID); err != nil {
				return fmt.Errorf("failed to add question to test: %w", err)
			}
			return txRepo.Test().RecomputeTotals(ctx, nil, *req.TestID)
		})
	} else {
		err = s.repo.Question().Create(ctx, s.db, question)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question created successfully", "question_id", question.ID)

	return s.buildQuestionResponse(ctx, question, creatorID), nil
}

func (s *questionService) GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	canEdit, err := s.canEditQuestion(ctx, question, userID)
	if err != nil {
		return nil, err
	}
	if !canEdit {
		return nil, NewPermissionError(userID, id, "question", "update", "not owner or insufficient permissions")
	}

	// Validate against the merged state
	if errs := s.validator.GetBusinessValidator().ValidateQuestionUpdate(req, question); len(errs) > 0 {
		return nil, errs
	}

	marksChanged := req.Marks != nil && *req.Marks != question.Marks

	if err := s.applyQuestionUpdates(question, req); err != nil {
		return nil, err
	}

	// A marks change shifts the totals of any test holding this question
	if marksChanged && question.TestID != nil {
		err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			if err := txRepo.Question().Update(ctx, nil, question); err != nil {
				return fmt.Errorf("failed to update question: %w", err)
			}
			return txRepo.Test().RecomputeTotals(ctx, nil, *question.TestID)
		})
	} else {
		err = s.repo.Question().Update(ctx, s.db, question)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question updated successfully", "question_id", id)

	return s.buildQuestionResponse(ctx, question, userID), nil
}

func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	question, err := s.repo.Question().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}

	canEdit, err := s.canEditQuestion(ctx, question, userID)
	if err != nil {
		return err
	}
	if !canEdit {
		return NewPermissionError(userID, id, "question", "delete", "not owner or insufficient permissions")
	}

	// Questions still wired into tests cannot be removed
	inUse, err := s.repo.Question().IsUsedInTests(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to check question usage: %w", err)
	}
	if inUse {
		return ErrQuestionInUse
	}

	if err := s.repo.Question().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted successfully", "question_id", id)

	return nil
}

// ===== BULK OPERATIONS =====

func (s *questionService) CreateBatch(ctx context.Context, reqs []*CreateQuestionRequest, creatorID string) ([]*QuestionResponse, error) {
	if len(reqs) == 0 {
		return []*QuestionResponse{}, nil
	}

	s.logger.Info("Creating question batch", "count", len(reqs), "creator_id", creatorID)

	canCreate, err := s.canManageQuestions(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !canCreate {
		return nil, NewPermissionError(creatorID, 0, "question", "create", "requires instructor role")
	}

	// Every row must validate before anything is written
	questions := make([]*models.Question, 0, len(reqs))
	for i, req := range reqs {
		if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
			return nil, fmt.Errorf("question %d: %w", i+1, errs)
		}
		question, err := s.buildQuestionModel(req, creatorID)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, question)
	}

	if err := s.repo.Question().CreateBatch(ctx, s.db, questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}

	responses := make([]*QuestionResponse, len(questions))
	for i, question := range questions {
		responses[i] = s.buildQuestionResponse(ctx, question, creatorID)
	}

	s.logger.Info("Question batch created successfully", "count", len(questions))

	return responses, nil
}

// ===== LIST OPERATIONS =====

func (s *questionService) List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	return s.buildQuestionListResponse(ctx, questions, total, filters.Limit, filters.Offset, userID), nil
}

func (s *questionService) GetByCourse(ctx context.Context, courseID string, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().GetByCourse(ctx, s.db, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions by course: %w", err)
	}

	return s.buildQuestionListResponse(ctx, questions, total, filters.Limit, filters.Offset, userID), nil
}
