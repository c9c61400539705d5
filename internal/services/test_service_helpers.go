package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// ===== PERMISSION HELPERS =====

func (s *testService) getUserRole(ctx context.Context, userID string) (models.UserRole, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role, nil
}

func (s *testService) canManageTests(ctx context.Context, userID string) (bool, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return false, err
	}

	return userRole == models.RoleInstructor || userRole == models.RoleAdmin, nil
}

func (s *testService) canEditTest(ctx context.Context, test *models.Test, userID string) (bool, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return false, err
	}

	if userRole == models.RoleAdmin {
		return true, nil
	}

	return userRole == models.RoleInstructor && test.CreatedBy == userID, nil
}

// restrictToPublished reports whether list results must be limited to
// published tests for this user
func (s *testService) restrictToPublished(ctx context.Context, userID string) (bool, error) {
	userRole, err := s.getUserRole(ctx, userID)
	if err != nil {
		return false, err
	}

	return userRole == models.RoleStudent, nil
}

// ===== BUILDERS =====

func (s *testService) buildTestModel(req *CreateTestRequest, creatorID string) *models.Test {
	test := &models.Test{
		CourseID:     req.CourseID,
		LessonID:     req.LessonID,
		Title:        req.Title,
		Description:  req.Description,
		Duration:     req.Duration,
		PassingMarks: req.PassingMarks,

		// Negative marking is platform policy; requests cannot turn it off
		NegativeMarkingEnabled: true,
		NegativeMarkingPercent: 25,

		ShuffleQuestions:  req.ShuffleQuestions,
		ShuffleOptions:    req.ShuffleOptions,
		MaxAttempts:       -1,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		IsAlwaysAvailable: true,
		CreatedBy:         creatorID,
	}

	if req.NegativeMarkingPercent != nil {
		test.NegativeMarkingPercent = *req.NegativeMarkingPercent
	}
	if req.MaxAttempts != nil {
		test.MaxAttempts = *req.MaxAttempts
	}
	if req.CooldownHours != nil {
		test.CooldownHours = *req.CooldownHours
	}
	if req.IsAlwaysAvailable != nil {
		test.IsAlwaysAvailable = *req.IsAlwaysAvailable
	} else if req.StartDate != nil || req.EndDate != nil {
		test.IsAlwaysAvailable = false
	}

	return test
}

func (s *testService) applyTestUpdates(test *models.Test, req *UpdateTestRequest) {
	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = req.Description
	}
	if req.Duration != nil {
		test.Duration = *req.Duration
	}
	if req.PassingMarks != nil {
		test.PassingMarks = *req.PassingMarks
	}

	// Any attempt to disable negative marking is silently overridden
	test.NegativeMarkingEnabled = true
	if req.NegativeMarkingPercent != nil {
		test.NegativeMarkingPercent = *req.NegativeMarkingPercent
	}

	if req.ShuffleQuestions != nil {
		test.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		test.ShuffleOptions = *req.ShuffleOptions
	}
	if req.MaxAttempts != nil {
		test.MaxAttempts = *req.MaxAttempts
	}
	if req.CooldownHours != nil {
		test.CooldownHours = *req.CooldownHours
	}
	if req.StartDate != nil {
		test.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		test.EndDate = req.EndDate
	}
	if req.IsAlwaysAvailable != nil {
		test.IsAlwaysAvailable = *req.IsAlwaysAvailable
	}
}

func (s *testService) buildTestResponse(ctx context.Context, test *models.Test, userID string) *TestResponse {
	canEdit, _ := s.canEditTest(ctx, test, userID)

	return &TestResponse{
		Test:      test,
		CanEdit:   canEdit,
		CanDelete: canEdit,
	}
}

func (s *testService) buildTestListResponse(ctx context.Context, tests []*models.Test, total int64, limit, offset int, userID string) *TestListResponse {
	responses := make([]*TestResponse, len(tests))
	for i, test := range tests {
		responses[i] = s.buildTestResponse(ctx, test, userID)
	}

	page := 0
	if limit > 0 {
		page = offset / limit
	}

	return &TestListResponse{
		Tests: responses,
		Total: total,
		Page:  page,
		Size:  limit,
	}
}
