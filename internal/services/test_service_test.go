package services

import (
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

func TestNewTestService(t *testing.T) {
	type args struct {
		repo      repositories.Repository
		db        *gorm.DB
		logger    *slog.Logger
		validator *validator.Validator
	}
	tests := []struct {
		name string
		args args
		want TestService
	}{
		{name: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewTestService(tt.args.repo, tt.args.db, tt.args.logger, tt.args.validator, nil)
		})
	}
}

func TestBuildTestModel(t *testing.T) {
	s := &testService{}

	t.Run("defaults", func(t *testing.T) {
		req := &CreateTestRequest{
			CourseID: "course-1",
			Title:    "Midterm",
			Duration: 60,
		}

		test := s.buildTestModel(req, "instructor-1")

		if !test.NegativeMarkingEnabled {
			t.Error("negative marking must always be enabled")
		}
		if test.NegativeMarkingPercent != 25 {
			t.Errorf("NegativeMarkingPercent = %v, want default 25", test.NegativeMarkingPercent)
		}
		if test.MaxAttempts != -1 {
			t.Errorf("MaxAttempts = %d, want unlimited default -1", test.MaxAttempts)
		}
		if !test.IsAlwaysAvailable {
			t.Error("IsAlwaysAvailable = false, want true by default")
		}
		if test.CreatedBy != "instructor-1" {
			t.Errorf("CreatedBy = %s, want instructor-1", test.CreatedBy)
		}
	})

	t.Run("window dates imply scheduled availability", func(t *testing.T) {
		start := time.Now().UTC()
		req := &CreateTestRequest{
			CourseID:  "course-1",
			Title:     "Midterm",
			Duration:  60,
			StartDate: &start,
		}

		test := s.buildTestModel(req, "instructor-1")

		if test.IsAlwaysAvailable {
			t.Error("a test with a start date must not be always available")
		}
	})
}

func TestApplyTestUpdates(t *testing.T) {
	s := &testService{}

	t.Run("negative marking cannot be disabled", func(t *testing.T) {
		disabled := false
		test := &models.Test{NegativeMarkingEnabled: true, NegativeMarkingPercent: 25}

		s.applyTestUpdates(test, &UpdateTestRequest{NegativeMarkingEnabled: &disabled})

		if !test.NegativeMarkingEnabled {
			t.Error("update disabled negative marking; it must stay on")
		}
	})

	t.Run("only provided fields change", func(t *testing.T) {
		title := "Final"
		duration := 90
		test := &models.Test{
			Title:        "Midterm",
			Duration:     60,
			PassingMarks: 40,
		}

		s.applyTestUpdates(test, &UpdateTestRequest{Title: &title, Duration: &duration})

		if test.Title != "Final" || test.Duration != 90 {
			t.Errorf("updates not applied: %+v", test)
		}
		if test.PassingMarks != 40 {
			t.Errorf("PassingMarks = %d, want untouched 40", test.PassingMarks)
		}
	})
}
