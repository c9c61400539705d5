package validator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateTestCreate validates test creation business rules
func (bv *BusinessValidator) ValidateTestCreate(req *models.TestCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Availability window rules
	errors = append(errors, bv.validateAvailabilityWindow(req.StartDate, req.EndDate, req.IsAlwaysAvailable)...)

	return errors
}

// ValidateTestUpdate validates test update business rules
func (bv *BusinessValidator) ValidateTestUpdate(req *models.TestUpdateRequest, existing *models.Test) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Availability window rules against the merged state
	startDate := existing.StartDate
	if req.StartDate != nil {
		startDate = req.StartDate
	}
	endDate := existing.EndDate
	if req.EndDate != nil {
		endDate = req.EndDate
	}
	alwaysAvailable := existing.IsAlwaysAvailable
	if req.IsAlwaysAvailable != nil {
		alwaysAvailable = *req.IsAlwaysAvailable
	}
	errors = append(errors, bv.validateAvailabilityWindow(startDate, endDate, &alwaysAvailable)...)

	return errors
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *models.QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Options and correct answer shapes depend on the question type
	errors = append(errors, bv.validateQuestionShape(req.Type, req.Options, req.CorrectAnswer)...)

	return errors
}

// ValidateQuestionUpdate validates question update business rules. The type
// of an existing question cannot change, so shapes are checked against it.
func (bv *BusinessValidator) ValidateQuestionUpdate(req *models.QuestionUpdateRequest, existing *models.Question) ValidationErrors {
	var errors ValidationErrors

	// Basic struct validation
	errors = append(errors, bv.Validate(req)...)

	// Build the merged view for shape validation
	options, err := existing.ParseOptions()
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   "options",
			Message: "stored options are not valid",
			Rule:    "business_logic",
		})
		return errors
	}
	if req.Options != nil {
		options = req.Options
	}

	correctAnswer := json.RawMessage(existing.CorrectAnswer)
	if req.CorrectAnswer != nil {
		correctAnswer = req.CorrectAnswer
	}

	errors = append(errors, bv.validateQuestionShape(existing.Type, options, correctAnswer)...)

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Max attempts validation (-1 means unlimited, otherwise at least 1)
	bv.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		attempts := fl.Field().Int()
		return attempts == -1 || attempts >= 1
	})

	// Date validation (must be in future)
	bv.validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true // Optional field
		}

		var date time.Time
		if field.Kind() == reflect.Ptr {
			date = field.Elem().Interface().(time.Time)
		} else {
			date = field.Interface().(time.Time)
		}

		return date.After(time.Now())
	})

	// question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		qType := fl.Field().String()
		validTypes := []models.QuestionType{models.MCQ, models.TrueFalse, models.MultipleSelect, models.FillBlank, models.ShortAnswer}
		for _, vt := range validTypes {
			if models.QuestionType(qType) == vt {
				return true
			}
		}
		return false
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		level := fl.Field().String()
		if level == "" {
			return true // Optional
		}
		validLevels := []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}
		for _, vl := range validLevels {
			if models.DifficultyLevel(level) == vl {
				return true
			}
		}
		return false
	})
}

// validateAvailabilityWindow validates start/end date consistency
func (bv *BusinessValidator) validateAvailabilityWindow(startDate, endDate *time.Time, alwaysAvailable *bool) ValidationErrors {
	var errors ValidationErrors

	// An always-available test ignores its window entirely
	if alwaysAvailable != nil && *alwaysAvailable {
		return errors
	}

	if startDate != nil && endDate != nil && !endDate.After(*startDate) {
		errors = append(errors, ValidationError{
			Field:   "end_date",
			Message: "must be after start date",
			Value:   endDate,
			Rule:    "business_logic",
		})
	}

	return errors
}

// validateQuestionShape validates option counts and the correct answer
// payload for a given question type
func (bv *BusinessValidator) validateQuestionShape(qType models.QuestionType, options []models.QuestionOption, correctAnswer json.RawMessage) ValidationErrors {
	var errors ValidationErrors

	if qType.IsChoiceBased() {
		if len(options) < 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "choice-based questions require at least 2 options",
				Value:   len(options),
				Rule:    "business_logic",
			})
		}
		if qType == models.TrueFalse && len(options) != 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "true/false questions require exactly 2 options",
				Value:   len(options),
				Rule:    "business_logic",
			})
		}
		for i, opt := range options {
			if strings.TrimSpace(opt.Text) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("options[%d]", i),
					Message: "option text cannot be empty",
					Rule:    "business_logic",
				})
			}
		}
	} else if len(options) > 0 {
		errors = append(errors, ValidationError{
			Field:   "options",
			Message: "text-based questions cannot have options",
			Value:   len(options),
			Rule:    "business_logic",
		})
	}

	if len(correctAnswer) == 0 {
		errors = append(errors, ValidationError{
			Field:   "correct_answer",
			Message: "is required",
			Rule:    "required",
		})
		return errors
	}

	switch qType {
	case models.MCQ, models.TrueFalse:
		var answer models.SingleIndexAnswer
		if err := json.Unmarshal(correctAnswer, &answer); err != nil {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: "must contain a single option index",
				Rule:    "business_logic",
			})
			break
		}
		if answer.Index < 0 || answer.Index >= len(options) {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: "index is out of range for the given options",
				Value:   answer.Index,
				Rule:    "business_logic",
			})
		}

	case models.MultipleSelect:
		var answer models.MultiIndexAnswer
		if err := json.Unmarshal(correctAnswer, &answer); err != nil {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: "must contain a list of option indices",
				Rule:    "business_logic",
			})
			break
		}
		if len(answer.Indices) == 0 {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: "must select at least one option",
				Rule:    "business_logic",
			})
		}
		seen := make(map[int]bool)
		for _, idx := range answer.Indices {
			if idx < 0 || idx >= len(options) {
				errors = append(errors, ValidationError{
					Field:   "correct_answer",
					Message: "index is out of range for the given options",
					Value:   idx,
					Rule:    "business_logic",
				})
			}
			if seen[idx] {
				errors = append(errors, ValidationError{
					Field:   "correct_answer",
					Message: "indices must be unique",
					Value:   idx,
					Rule:    "business_logic",
				})
			}
			seen[idx] = true
		}

	case models.FillBlank, models.ShortAnswer:
		var answer models.TextAnswer
		if err := json.Unmarshal(correctAnswer, &answer); err != nil {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: "must contain an answer text",
				Rule:    "business_logic",
			})
			break
		}
		if strings.TrimSpace(answer.Text) == "" {
			errors = append(errors, ValidationError{
				Field:   "correct_answer",
				Message: "answer text cannot be empty",
				Rule:    "business_logic",
			})
		}
	}

	return errors
}
