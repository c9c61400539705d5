package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// ===== PERMISSION CHECKS =====

func (s *questionService) getUserRole(ctx context.Context, userID string) (models.UserRole, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role, nil
}

func (s *questionService) canManageQuestions(ctx context.Context, userID string) (bool, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return false, err
	}

	return userRole == models.RoleInstructor || userRole == models.RoleAdmin, nil
}

func (s *questionService) canEditQuestion(ctx context.Context, question *models.Question, userID string) (bool, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return false, err
	}

	// Admin can edit all questions
	if userRole == models.RoleAdmin {
		return true, nil
	}

	// Instructors can edit their own questions
	return userRole == models.RoleInstructor && question.CreatedBy == userID, nil
}

// ===== BUILDERS =====

func (s *questionService) buildQuestionModel(req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	question := &models.Question{
		CourseID:      req.CourseID,
		TestID:        req.TestID,
		Type:          req.Type,
		Prompt:        req.Prompt,
		CorrectAnswer: []byte(req.CorrectAnswer),
		Marks:         req.Marks,
		Difficulty:    req.Difficulty,
		Topic:         req.Topic,
		CreatedBy:     creatorID,
	}

	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}

	if req.Type.IsChoiceBased() {
		optionsJSON, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal options: %w", err)
		}
		question.Options = optionsJSON
	}

	return question, nil
}

func (s *questionService) applyQuestionUpdates(question *models.Question, req *UpdateQuestionRequest) error {
	if req.Prompt != nil {
		question.Prompt = *req.Prompt
	}

	if req.Options != nil {
		optionsJSON, err := json.Marshal(req.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal options: %w", err)
		}
		question.Options = optionsJSON
	}

	if req.CorrectAnswer != nil {
		question.CorrectAnswer = []byte(req.CorrectAnswer)
	}

	if req.Marks != nil {
		question.Marks = *req.Marks
	}

	if req.Difficulty != nil {
		question.Difficulty = *req.Difficulty
	}

	if req.Topic != nil {
		question.Topic = *req.Topic
	}

	return nil
}

func (s *questionService) buildQuestionResponse(ctx context.Context, question *models.Question, userID string) *QuestionResponse {
	canEdit, _ := s.canEditQuestion(ctx, question, userID)

	return &QuestionResponse{
		Question:  question,
		CanEdit:   canEdit,
		CanDelete: canEdit,
	}
}

func (s *questionService) buildQuestionListResponse(ctx context.Context, questions []*models.Question, total int64, limit, offset int, userID string) *QuestionListResponse {
	responses := make([]*QuestionResponse, len(questions))
	for i, question := range questions {
		responses[i] = s.buildQuestionResponse(ctx, question, userID)
	}

	page := 0
	if limit > 0 {
		page = offset / limit
	}

	return &QuestionListResponse{
		Questions: responses,
		Total:     total,
		Page:      page,
		Size:      limit,
	}
}
