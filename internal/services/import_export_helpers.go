package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

const optionSeparator = "|"

// parseQuestionRow maps one worksheet row onto a create request. Cell
// layout follows questionHeader: type, prompt, options, correct_answer,
// marks, difficulty, topic.
func parseQuestionRow(row []string, courseID string) (*CreateQuestionRequest, []models.ImportValidationError) {
	var errs []models.ImportValidationError

	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	qType := models.QuestionType(cell(0))
	switch qType {
	case models.MCQ, models.TrueFalse, models.MultipleSelect, models.FillBlank, models.ShortAnswer:
	default:
		errs = append(errs, models.ImportValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown question type %q", cell(0)),
		})
		return nil, errs
	}

	prompt := cell(1)
	if prompt == "" {
		errs = append(errs, models.ImportValidationError{Field: "prompt", Message: "prompt is required"})
	}

	var options []models.QuestionOption
	if optionsCell := cell(2); optionsCell != "" {
		for _, text := range strings.Split(optionsCell, optionSeparator) {
			options = append(options, models.QuestionOption{Text: strings.TrimSpace(text)})
		}
	}

	correctAnswer, err := parseCorrectAnswerCell(qType, cell(3), len(options))
	if err != nil {
		errs = append(errs, models.ImportValidationError{Field: "correct_answer", Message: err.Error()})
	}

	marks, err := parseMarksCell(cell(4))
	if err != nil {
		errs = append(errs, models.ImportValidationError{Field: "marks", Message: err.Error()})
	}

	difficulty := models.DifficultyLevel(cell(5))
	switch difficulty {
	case "", models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		errs = append(errs, models.ImportValidationError{
			Field:   "difficulty",
			Message: fmt.Sprintf("unknown difficulty %q", cell(5)),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &CreateQuestionRequest{
		CourseID:      courseID,
		Type:          qType,
		Prompt:        prompt,
		Options:       options,
		CorrectAnswer: correctAnswer,
		Marks:         marks,
		Difficulty:    difficulty,
		Topic:         cell(6),
	}, nil
}

// parseCorrectAnswerCell builds the stored answer shape from the worksheet
// cell. Choice positions are 1-based in the sheet and 0-based in storage.
func parseCorrectAnswerCell(qType models.QuestionType, cell string, optionCount int) (json.RawMessage, error) {
	if cell == "" {
		return nil, fmt.Errorf("correct answer is required")
	}

	switch qType {
	case models.MCQ, models.TrueFalse:
		position, err := strconv.Atoi(cell)
		if err != nil || position < 1 || position > optionCount {
			return nil, fmt.Errorf("correct answer must be an option position between 1 and %d", optionCount)
		}
		return json.Marshal(models.SingleIndexAnswer{Index: position - 1})

	case models.MultipleSelect:
		parts := strings.Split(cell, optionSeparator)
		indices := make([]int, 0, len(parts))
		for _, part := range parts {
			position, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || position < 1 || position > optionCount {
				return nil, fmt.Errorf("correct answer positions must be between 1 and %d", optionCount)
			}
			indices = append(indices, position-1)
		}
		return json.Marshal(models.MultiIndexAnswer{Indices: indices})

	default:
		return json.Marshal(models.TextAnswer{Text: cell})
	}
}

// formatCorrectAnswerCell is the inverse of parseCorrectAnswerCell.
func formatCorrectAnswerCell(question *models.Question) (string, error) {
	switch question.Type {
	case models.MCQ, models.TrueFalse:
		var answer models.SingleIndexAnswer
		if err := json.Unmarshal(question.CorrectAnswer, &answer); err != nil {
			return "", err
		}
		return strconv.Itoa(answer.Index + 1), nil

	case models.MultipleSelect:
		var answer models.MultiIndexAnswer
		if err := json.Unmarshal(question.CorrectAnswer, &answer); err != nil {
			return "", err
		}
		parts := make([]string, len(answer.Indices))
		for i, index := range answer.Indices {
			parts[i] = strconv.Itoa(index + 1)
		}
		return strings.Join(parts, optionSeparator), nil

	default:
		var answer models.TextAnswer
		if err := json.Unmarshal(question.CorrectAnswer, &answer); err != nil {
			return "", err
		}
		return answer.Text, nil
	}
}

func joinOptionTexts(options []models.QuestionOption) string {
	texts := make([]string, len(options))
	for i, opt := range options {
		texts[i] = opt.Text
	}
	return strings.Join(texts, optionSeparator)
}
