package validator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

func hasFieldError(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func hasRuleError(errs ValidationErrors, rule string) bool {
	for _, e := range errs {
		if e.Rule == rule {
			return true
		}
	}
	return false
}

func TestValidateTestCreate(t *testing.T) {
	bv := NewBusinessValidator()

	valid := func() *models.TestCreateRequest {
		return &models.TestCreateRequest{
			CourseID:     "course-1",
			Title:        "Midterm",
			Duration:     60,
			PassingMarks: 50,
		}
	}

	t.Run("valid request", func(t *testing.T) {
		if errs := bv.ValidateTestCreate(valid()); len(errs) > 0 {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("max attempts", func(t *testing.T) {
		tests := []struct {
			name     string
			attempts int
			wantErr  bool
		}{
			{"unlimited", -1, false},
			{"single attempt", 1, false},
			{"zero is invalid", 0, true},
			{"negative other than -1", -3, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := valid()
				req.MaxAttempts = &tt.attempts
				errs := bv.ValidateTestCreate(req)
				if got := hasRuleError(errs, "max_attempts"); got != tt.wantErr {
					t.Errorf("max_attempts error = %v, want %v (errs %v)", got, tt.wantErr, errs)
				}
			})
		}
	})

	t.Run("end date before start date", func(t *testing.T) {
		start := time.Now().Add(48 * time.Hour)
		end := start.Add(-time.Hour)
		no := false
		req := valid()
		req.StartDate = &start
		req.EndDate = &end
		req.IsAlwaysAvailable = &no

		errs := bv.ValidateTestCreate(req)
		if !hasFieldError(errs, "end_date") {
			t.Errorf("expected end_date error, got %v", errs)
		}
	})

	t.Run("always available ignores the window", func(t *testing.T) {
		start := time.Now().Add(48 * time.Hour)
		end := start.Add(-time.Hour)
		yes := true
		req := valid()
		req.StartDate = &start
		req.EndDate = &end
		req.IsAlwaysAvailable = &yes

		if errs := bv.ValidateTestCreate(req); len(errs) > 0 {
			t.Errorf("unexpected errors: %v", errs)
		}
	})
}

func TestValidateQuestionCreate(t *testing.T) {
	bv := NewBusinessValidator()

	options := []models.QuestionOption{{Text: "3"}, {Text: "4"}, {Text: "5"}}

	tests := []struct {
		name      string
		qType     models.QuestionType
		options   []models.QuestionOption
		answer    string
		wantField string
	}{
		{"valid mcq", models.MCQ, options, `{"index":1}`, ""},
		{"mcq index out of range", models.MCQ, options, `{"index":3}`, "correct_answer"},
		{"mcq single option", models.MCQ, options[:1], `{"index":0}`, "options"},
		{"true_false needs two options", models.TrueFalse, options, `{"index":0}`, "options"},
		{"valid multiple select", models.MultipleSelect, options, `{"indices":[0,2]}`, ""},
		{"text question with options", models.ShortAnswer, options, `{"text":"x"}`, "options"},
		{"valid short answer", models.ShortAnswer, nil, `{"text":"Paris"}`, ""},
		{"blank option text", models.MCQ, []models.QuestionOption{{Text: "a"}, {Text: " "}}, `{"index":0}`, "options[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.QuestionCreateRequest{
				CourseID:      "course-1",
				Type:          tt.qType,
				Prompt:        "prompt",
				Options:       tt.options,
				CorrectAnswer: json.RawMessage(tt.answer),
				Marks:         1,
			}

			errs := bv.ValidateQuestionCreate(req)
			if tt.wantField == "" {
				if len(errs) > 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			if !hasFieldError(errs, tt.wantField) {
				t.Errorf("expected %s error, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateQuestionUpdate(t *testing.T) {
	bv := NewBusinessValidator()

	existing := &models.Question{
		Type:          models.MCQ,
		Prompt:        "What is 2+2?",
		Options:       []byte(`[{"text":"3"},{"text":"4"}]`),
		CorrectAnswer: []byte(`{"index":1}`),
	}

	t.Run("new answer checked against stored options", func(t *testing.T) {
		req := &models.QuestionUpdateRequest{
			CorrectAnswer: json.RawMessage(`{"index":5}`),
		}

		errs := bv.ValidateQuestionUpdate(req, existing)
		if !hasFieldError(errs, "correct_answer") {
			t.Errorf("expected correct_answer error, got %v", errs)
		}
	})

	t.Run("replacing options revalidates the shape", func(t *testing.T) {
		req := &models.QuestionUpdateRequest{
			Options: []models.QuestionOption{{Text: "only one"}},
		}

		errs := bv.ValidateQuestionUpdate(req, existing)
		if !hasFieldError(errs, "options") {
			t.Errorf("expected options error, got %v", errs)
		}
	})
}
